package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/port"
)

var ErrDuplicateRFQ = errors.New("rfq already recorded")

const mysqlDuplicateEntry = 1062

// MySQLAdapter reads the catalog and records dispatched RFQs in an outbox
// that downstream senders consume.
type MySQLAdapter struct {
	db *sql.DB
}

var (
	_ port.CatalogRepository = (*MySQLAdapter)(nil)
	_ port.RFQSink           = (*MySQLAdapter)(nil)
)

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) GetCatalogItem(ctx context.Context, id string) (domain.CatalogItem, error) {
	var (
		rec      seedItemRecord
		baseline decimal.Decimal
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, sku, category, baseline_price, manufacturer,
			stock_on_hand, stock_reserved, stock_on_order
		FROM catalog_items WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &rec.SKU, &rec.Category, &baseline, &rec.Manufacturer,
		&rec.Stock.OnHand, &rec.Stock.Reserved, &rec.Stock.OnOrder)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.CatalogItem{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("query catalog item: %w", err)
	}
	rec.BaselinePrice = baseline.String()

	offers, err := m.offersFor(ctx, []string{rec.ID})
	if err != nil {
		return domain.CatalogItem{}, err
	}
	rec.Offers = offers[rec.ID]
	return rec.toDomain()
}

func (m *MySQLAdapter) ListCatalogItems(ctx context.Context, query string) ([]domain.CatalogItem, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, sku, category, baseline_price, manufacturer,
			stock_on_hand, stock_reserved, stock_on_order
		FROM catalog_items
		WHERE LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(category) LIKE ?
		ORDER BY name`, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("query catalog items: %w", err)
	}
	defer rows.Close()

	var (
		recs []seedItemRecord
		ids  []string
	)
	for rows.Next() {
		var (
			rec      seedItemRecord
			baseline decimal.Decimal
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.SKU, &rec.Category, &baseline, &rec.Manufacturer,
			&rec.Stock.OnHand, &rec.Stock.Reserved, &rec.Stock.OnOrder); err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		rec.BaselinePrice = baseline.String()
		recs = append(recs, rec)
		ids = append(ids, rec.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog items: %w", err)
	}

	offers, err := m.offersFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.CatalogItem, 0, len(recs))
	for _, rec := range recs {
		rec.Offers = offers[rec.ID]
		item, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *MySQLAdapter) offersFor(ctx context.Context, itemIDs []string) (map[string][]offerRecord, error) {
	out := make(map[string][]offerRecord, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ",")
	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT item_id, id, vendor_name, product_name, price_per_unit, delivery_estimate,
			compliance_status, packaging, manufacturer, website, is_current
		FROM catalog_offers
		WHERE item_id IN (`+placeholders+`)
		ORDER BY item_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog offers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			itemID string
			rec    offerRecord
			price  decimal.Decimal
		)
		if err := rows.Scan(&itemID, &rec.ID, &rec.VendorName, &rec.ProductName, &price, &rec.DeliveryEstimate,
			&rec.ComplianceStatus, &rec.Packaging, &rec.Manufacturer, &rec.Website, &rec.Current); err != nil {
			return nil, fmt.Errorf("scan catalog offer: %w", err)
		}
		rec.PricePerUnit = price.String()
		out[itemID] = append(out[itemID], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog offers: %w", err)
	}
	return out, nil
}

// Dispatch writes the document, its items and vendors in one transaction.
func (m *MySQLAdapter) Dispatch(ctx context.Context, doc domain.RFQDocument) (domain.DispatchReceipt, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.DispatchReceipt{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO rfq_documents (id, status, created_at, dispatched_at, item_count, vendor_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, string(domain.RFQStatusDispatched), doc.CreatedAt, now, len(doc.Items), doc.VendorCount(),
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return domain.DispatchReceipt{}, fmt.Errorf("%w: %s", ErrDuplicateRFQ, doc.ID)
		}
		return domain.DispatchReceipt{}, fmt.Errorf("insert rfq: %w", err)
	}

	for pos, it := range doc.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rfq_items (rfq_id, position, item_id, item_name, sku, quantity)
			VALUES (?, ?, ?, ?, ?, ?)`,
			doc.ID, pos, it.ItemID, it.Item.Name, it.Item.SKU, it.Quantity,
		)
		if err != nil {
			return domain.DispatchReceipt{}, fmt.Errorf("insert rfq item %s: %w", it.ItemID, err)
		}

		for _, v := range it.Vendors {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO rfq_vendors (rfq_id, item_id, vendor_id, vendor_name, price_per_unit, delivery_estimate)
				VALUES (?, ?, ?, ?, ?, ?)`,
				doc.ID, it.ItemID, v.VendorID, v.Vendor.VendorName, v.Vendor.PricePerUnit, v.Vendor.DeliveryEstimate,
			)
			if err != nil {
				return domain.DispatchReceipt{}, fmt.Errorf("insert rfq vendor %s/%s: %w", it.ItemID, v.VendorID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.DispatchReceipt{}, fmt.Errorf("commit rfq: %w", err)
	}

	return domain.DispatchReceipt{
		RFQID:        doc.ID,
		Reference:    "mysql:rfq_documents/" + doc.ID,
		DispatchedAt: now,
	}, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
