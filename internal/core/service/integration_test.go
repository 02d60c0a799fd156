package service_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/procurement/internal/adapter/storage"
	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/core/service"
	"github.com/rl1809/procurement/internal/port"
)

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	cache   *storage.RedisAdapter
	db      *storage.MySQLAdapter
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/procurement?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return &testEnv{
		redis: rdb,
		mysql: db,
		cache: storage.NewRedisAdapter(rdb),
		db:    storage.NewMySQLAdapter(db),
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func seedItem(t *testing.T, env *testEnv, itemID string) {
	ctx := context.Background()
	env.mysql.ExecContext(ctx, `DELETE FROM catalog_offers WHERE item_id = ?`, itemID)
	env.mysql.ExecContext(ctx, `DELETE FROM catalog_items WHERE id = ?`, itemID)

	_, err := env.mysql.ExecContext(ctx, `
		INSERT INTO catalog_items (id, name, sku, category, baseline_price, manufacturer, stock_on_hand, stock_reserved, stock_on_order)
		VALUES (?, 'Integration Gloves', 'INT-GLV', 'PPE', 10.00, 'Medline', 10, 0, 0)`, itemID)
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	_, err = env.mysql.ExecContext(ctx, `
		INSERT INTO catalog_offers (id, item_id, position, vendor_name, product_name, price_per_unit, delivery_estimate, compliance_status, packaging, manufacturer, website, is_current)
		VALUES (?, ?, 0, 'Medline Direct', 'Integration Gloves', 10.00, '', 'compliant', '', 'Medline', '', 1),
		       (?, ?, 1, 'Cardinal', 'Integration Gloves', 8.00, '', 'compliant', '', 'Medline', '', 0)`,
		itemID+"-cur", itemID, itemID+"-alt", itemID)
	if err != nil {
		t.Fatalf("seed offers: %v", err)
	}
}

func cleanupRFQ(env *testEnv, id string) {
	ctx := context.Background()
	env.mysql.ExecContext(ctx, `DELETE FROM rfq_vendors WHERE rfq_id = ?`, id)
	env.mysql.ExecContext(ctx, `DELETE FROM rfq_items WHERE rfq_id = ?`, id)
	env.mysql.ExecContext(ctx, `DELETE FROM rfq_documents WHERE id = ?`, id)
	env.redis.Del(ctx, "rfq:dispatch:"+id)
}

func TestIntegration_FullProcurementFlow(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	itemID := "integration-gloves"
	seedItem(t, env, itemID)

	orders := service.NewOrderService(domain.NewOrder(decimal.NewFromInt(100)), env.db, nil)
	rfqs := service.NewRFQService(orders, env.db, env.cache, nil, 5*time.Second)

	if _, err := orders.AddItem(ctx, itemID); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := orders.SetQuantity(itemID, 5); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if _, err := orders.ToggleVendor(itemID, itemID+"-alt"); err != nil {
		t.Fatalf("toggle vendor: %v", err)
	}

	if total := orders.Total(); !total.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected total 40, got %s", total)
	}

	doc, err := rfqs.Assemble()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	defer cleanupRFQ(env, doc.ID)

	if _, err := rfqs.Dispatch(ctx, doc.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	// Both the incumbent and the alternate are selected
	var vendors int
	env.mysql.QueryRowContext(ctx, `SELECT COUNT(*) FROM rfq_vendors WHERE rfq_id = ?`, doc.ID).Scan(&vendors)
	if vendors != 2 {
		t.Errorf("expected 2 vendor rows, got %d", vendors)
	}

	// Claim stays held after a successful dispatch
	if n := env.redis.Exists(ctx, "rfq:dispatch:"+doc.ID).Val(); n != 1 {
		t.Errorf("expected dispatch claim to remain, got %d", n)
	}
}

type failingSink struct {
	calls atomic.Int32
}

func (f *failingSink) Dispatch(ctx context.Context, doc domain.RFQDocument) (domain.DispatchReceipt, error) {
	f.calls.Add(1)
	return domain.DispatchReceipt{}, errors.New("outbox unavailable")
}

func TestIntegration_RollbackOnSinkFailure(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	itemID := "rollback-gloves"
	seedItem(t, env, itemID)

	orders := service.NewOrderService(domain.NewOrder(decimal.Zero), env.db, nil)
	sink := &failingSink{}
	rfqs := service.NewRFQService(orders, sink, env.cache, nil, time.Second)

	if _, err := orders.AddItem(ctx, itemID); err != nil {
		t.Fatalf("add item: %v", err)
	}
	doc, err := rfqs.Assemble()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	defer cleanupRFQ(env, doc.ID)

	_, err = rfqs.Dispatch(ctx, doc.ID)
	if !errors.Is(err, domain.ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got: %v", err)
	}

	// Verify the claim was rolled back
	if n := env.redis.Exists(ctx, "rfq:dispatch:"+doc.ID).Val(); n != 0 {
		t.Errorf("expected dispatch claim released, got %d", n)
	}

	got, _ := rfqs.Get(doc.ID)
	if got.Status != domain.RFQStatusReady {
		t.Errorf("expected ready after failure, got %s", got.Status)
	}
}

func TestIntegration_ConcurrentDispatchOnce(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	itemID := "concurrent-gloves"
	seedItem(t, env, itemID)

	orders := service.NewOrderService(domain.NewOrder(decimal.Zero), env.db, nil)
	if _, err := orders.AddItem(ctx, itemID); err != nil {
		t.Fatalf("add item: %v", err)
	}

	var sink port.RFQSink = env.db
	a := service.NewRFQService(orders, sink, env.cache, nil, 5*time.Second)
	doc, err := a.Assemble()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	defer cleanupRFQ(env, doc.ID)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Dispatch(ctx, doc.ID); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 dispatch, got %d", successCount.Load())
	}

	var docs int
	env.mysql.QueryRowContext(ctx, `SELECT COUNT(*) FROM rfq_documents WHERE id = ?`, doc.ID).Scan(&docs)
	if docs != 1 {
		t.Errorf("expected 1 stored rfq, got %d", docs)
	}
}
