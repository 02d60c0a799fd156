package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/rl1809/procurement/internal/core/service"
)

const OrderServiceName = "procurement.v1.OrderService"

// jsonCodec lets plain Go structs travel over gRPC. Clients select it with
// grpc.CallContentSubtype("json").
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type GetSummaryRequest struct{}

type ItemRequest struct {
	ItemID string `json:"item_id"`
}

type SetQuantityRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type ToggleVendorRequest struct {
	ItemID   string `json:"item_id"`
	VendorID string `json:"vendor_id"`
}

type StartDiscoveryRequest struct {
	ItemID       string   `json:"item_id"`
	Query        string   `json:"query"`
	HintWebsites []string `json:"hint_websites"`
	Wait         bool     `json:"wait"`
}

type OrderServiceServer interface {
	GetSummary(ctx context.Context, req *GetSummaryRequest) (*OrderResponse, error)
	AddItem(ctx context.Context, req *ItemRequest) (*LineResponse, error)
	SetQuantity(ctx context.Context, req *SetQuantityRequest) (*LineResponse, error)
	ToggleVendor(ctx context.Context, req *ToggleVendorRequest) (*SelectionEventResponse, error)
	StartDiscovery(ctx context.Context, req *StartDiscoveryRequest) (*DiscoveryResponse, error)
}

type GRPCHandler struct {
	orders    *service.OrderService
	discovery *service.DiscoveryService
}

var _ OrderServiceServer = (*GRPCHandler)(nil)

func NewGRPCHandler(orders *service.OrderService, discovery *service.DiscoveryService) *GRPCHandler {
	return &GRPCHandler{orders: orders, discovery: discovery}
}

func (h *GRPCHandler) GetSummary(ctx context.Context, req *GetSummaryRequest) (*OrderResponse, error) {
	resp := toOrderResponse(h.orders.Summary(), h.discovery.Loading)
	return &resp, nil
}

func (h *GRPCHandler) AddItem(ctx context.Context, req *ItemRequest) (*LineResponse, error) {
	if req.ItemID == "" {
		return nil, status.Error(codes.InvalidArgument, "item_id is required")
	}
	line, err := h.orders.AddItem(ctx, req.ItemID)
	if err != nil {
		return nil, grpcError(err)
	}
	resp := toLineResponse(line, false)
	return &resp, nil
}

func (h *GRPCHandler) SetQuantity(ctx context.Context, req *SetQuantityRequest) (*LineResponse, error) {
	line, err := h.orders.SetQuantity(req.ItemID, req.Quantity)
	if err != nil {
		return nil, grpcError(err)
	}
	resp := toLineResponse(line, h.discovery.Loading(req.ItemID))
	return &resp, nil
}

func (h *GRPCHandler) ToggleVendor(ctx context.Context, req *ToggleVendorRequest) (*SelectionEventResponse, error) {
	evt, err := h.orders.ToggleVendor(req.ItemID, req.VendorID)
	if err != nil {
		return nil, grpcError(err)
	}
	resp := toSelectionEventResponse(evt)
	return &resp, nil
}

func (h *GRPCHandler) StartDiscovery(ctx context.Context, req *StartDiscoveryRequest) (*DiscoveryResponse, error) {
	pending, err := h.discovery.Search(req.ItemID, service.SearchCriteria{
		Query:        req.Query,
		HintWebsites: req.HintWebsites,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	if !req.Wait {
		return &DiscoveryResponse{ItemID: pending.ItemID, Seq: pending.Seq}, nil
	}

	result, err := pending.Wait(ctx)
	if err != nil {
		if result.Outcome == "" {
			return nil, status.FromContextError(err).Err()
		}
		return nil, grpcError(err)
	}
	resp := toDiscoveryResponse(result)
	return &resp, nil
}

// grpcError reuses the HTTP mapping so both transports agree on codes.
func grpcError(err error) error {
	httpStatus, resp := mapError(err)
	code := codes.Internal
	switch httpStatus {
	case http.StatusBadRequest:
		code = codes.InvalidArgument
	case http.StatusNotFound:
		code = codes.NotFound
	case http.StatusConflict:
		code = codes.AlreadyExists
	case http.StatusUnprocessableEntity:
		code = codes.FailedPrecondition
	case http.StatusBadGateway:
		code = codes.Unavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		code = codes.DeadlineExceeded
	}
	return status.Error(code, resp.Code+": "+resp.Message)
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&orderServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(OrderServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OrderServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + OrderServiceName + "/" + method,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(OrderServiceServer), ctx, req.(*Req))
			})
		},
	}
}

var orderServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GetSummary", OrderServiceServer.GetSummary),
		unaryHandler("AddItem", OrderServiceServer.AddItem),
		unaryHandler("SetQuantity", OrderServiceServer.SetQuantity),
		unaryHandler("ToggleVendor", OrderServiceServer.ToggleVendor),
		unaryHandler("StartDiscovery", OrderServiceServer.StartDiscovery),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "procurement/v1/order_service",
}
