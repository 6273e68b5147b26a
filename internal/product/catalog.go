// Package product adapts the read-only product catalog the pool engine
// consumes. Harga & cap pembeli milik katalog; engine tidak pernah menulis.
package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-sambatan-pool.git/internal/sambatan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGCatalog struct{ DB *pgxpool.Pool }

func (c *PGCatalog) Product(ctx context.Context, productID string) (sambatan.ProductInfo, error) {
	var p sambatan.ProductInfo
	err := c.DB.QueryRow(ctx, `
		SELECT id, seller_id, name, price_cents, max_buyers
		FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.SellerID, &p.Name, &p.PriceCents, &p.MaxBuyers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sambatan.ProductInfo{}, sambatan.ErrProductNotFound
		}
		return sambatan.ProductInfo{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}
