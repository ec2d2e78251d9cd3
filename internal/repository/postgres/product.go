package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vymjay/aprylo/internal/domain"
	"github.com/vymjay/aprylo/pkg/database"
	apperrors "github.com/vymjay/aprylo/pkg/errors"
	"github.com/vymjay/aprylo/pkg/pagination"
)

// ProductRepository implements catalog persistence using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, slug, description, category, status, price, original_price, currency, images, created_at, updated_at`

func scanProduct(row pgx.Row, p *domain.Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Category,
		&p.Status,
		&p.Price,
		&p.OriginalPrice,
		&p.Currency,
		&p.Images,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, slug, description, category, status, price, original_price, currency, images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.Category,
		product.Status,
		product.Price,
		product.OriginalPrice,
		product.Currency,
		product.Images,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", product.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID returns a single product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p domain.Product
	if err := scanProduct(r.db.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// List returns filtered, page-number-paginated products with the total count.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter, params pagination.Params) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
	)

	addArg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		conditions = append(conditions, "category = "+addArg(filter.Category))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = "+addArg(filter.Status))
	}
	if filter.Search != "" {
		ph := addArg("%" + filter.Search + "%")
		conditions = append(conditions, "(name ILIKE "+ph+" OR description ILIKE "+ph+")")
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, "price >= "+addArg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, "price <= "+addArg(*filter.MaxPrice))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s`,
		productColumns, where, addArg(params.PerPage), addArg(params.Offset))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Slug,
			&p.Description,
			&p.Category,
			&p.Status,
			&p.Price,
			&p.OriginalPrice,
			&p.Currency,
			&p.Images,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, totalCount, nil
}

// Update replaces a product's mutable fields.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, slug = $3, description = $4, category = $5, status = $6,
		    price = $7, original_price = $8, currency = $9, images = $10, updated_at = $11
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.Category,
		product.Status,
		product.Price,
		product.OriginalPrice,
		product.Currency,
		product.Images,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("product", product.ID)
	}

	return nil
}

// Delete removes a product and, via cascade, its variants.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

const variantColumns = `id, product_id, sku, name, price, attributes, stock, is_active, created_at, updated_at`

// ListVariants returns all variants of a product.
func (r *ProductRepository) ListVariants(ctx context.Context, productID string) ([]domain.ProductVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE product_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.ProductVariant
	for rows.Next() {
		var v domain.ProductVariant
		if err := rows.Scan(
			&v.ID,
			&v.ProductID,
			&v.SKU,
			&v.Name,
			&v.Price,
			&v.Attributes,
			&v.Stock,
			&v.IsActive,
			&v.CreatedAt,
			&v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}

	if variants == nil {
		variants = []domain.ProductVariant{}
	}

	return variants, nil
}

// GetVariant returns a single variant by ID.
func (r *ProductRepository) GetVariant(ctx context.Context, variantID string) (*domain.ProductVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE id = $1`

	var v domain.ProductVariant
	err := r.db.QueryRow(ctx, query, variantID).Scan(
		&v.ID,
		&v.ProductID,
		&v.SKU,
		&v.Name,
		&v.Price,
		&v.Attributes,
		&v.Stock,
		&v.IsActive,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("variant", variantID)
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}

	return &v, nil
}

// SetVariantStock sets a variant's stock to an absolute value.
func (r *ProductRepository) SetVariantStock(ctx context.Context, variantID string, stock int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE product_variants SET stock = $2, updated_at = NOW() WHERE id = $1`,
		variantID, stock,
	)
	if err != nil {
		return fmt.Errorf("set variant stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("variant", variantID)
	}
	return nil
}

// DecrementStock atomically subtracts quantity from a variant's stock. The
// guard in the WHERE clause makes oversell impossible under concurrency.
func (r *ProductRepository) DecrementStock(ctx context.Context, variantID string, quantity int) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE product_variants
		 SET stock = stock - $2, updated_at = NOW()
		 WHERE id = $1 AND stock >= $2`,
		variantID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RestoreStock adds quantity back to a variant's stock.
func (r *ProductRepository) RestoreStock(ctx context.Context, variantID string, quantity int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE product_variants SET stock = stock + $2, updated_at = NOW() WHERE id = $1`,
		variantID, quantity,
	)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}
