package bigquery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/budgetwise/internal/finance"
)

const categoryColumns = `
	category_id,
	name,
	icon,
	created_ts`

// ListCategories retrieves all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]finance.Category, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY name
	`, categoryColumns, r.table("categories")))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: reading query: %w", err)
	}

	var categories []finance.Category
	for {
		var row CategoryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategories: iterating: %w", err)
		}
		categories = append(categories, row.toDomain())
	}

	return categories, nil
}

// FindCategoryByName finds a category by case-insensitive name match.
// Returns ErrNotFound when no category matches.
func (r *Repository) FindCategoryByName(ctx context.Context, name string) (finance.Category, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE LOWER(name) = LOWER(@name)
		LIMIT 1
	`, categoryColumns, r.table("categories")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "name", Value: strings.TrimSpace(name)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return finance.Category{}, fmt.Errorf("FindCategoryByName: reading query: %w", err)
	}

	var row CategoryRow
	err = it.Next(&row)
	if err == iterator.Done {
		return finance.Category{}, fmt.Errorf("FindCategoryByName %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return finance.Category{}, fmt.Errorf("FindCategoryByName: iterating: %w", err)
	}

	return row.toDomain(), nil
}

// CreateCategory inserts a new category. Name uniqueness is enforced
// case-insensitively by a lookup before the write; the gateway itself has no
// unique constraint.
func (r *Repository) CreateCategory(ctx context.Context, c finance.Category) (finance.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return finance.Category{}, fmt.Errorf("CreateCategory: name is required")
	}

	if _, err := r.FindCategoryByName(ctx, c.Name); err == nil {
		return finance.Category{}, fmt.Errorf("CreateCategory %q: %w", c.Name, ErrDuplicateCategory)
	} else if !errors.Is(err, ErrNotFound) {
		return finance.Category{}, fmt.Errorf("CreateCategory: checking for duplicate: %w", err)
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()

	err := r.runDML(ctx, fmt.Sprintf(`
		INSERT %s (category_id, name, icon, created_ts)
		VALUES (@category_id, @name, @icon, @created_ts)
	`, r.table("categories")), []bigquery.QueryParameter{
		{Name: "category_id", Value: c.ID},
		{Name: "name", Value: c.Name},
		{Name: "icon", Value: bigquery.NullString{StringVal: c.Icon, Valid: c.Icon != ""}},
		{Name: "created_ts", Value: c.CreatedAt},
	})
	if err != nil {
		return finance.Category{}, fmt.Errorf("CreateCategory: %w", err)
	}

	return c, nil
}

// UpdateCategory applies a partial update and returns the updated category.
// Renames are checked for case-insensitive collisions with other categories.
func (r *Repository) UpdateCategory(ctx context.Context, id string, upd finance.CategoryUpdate) (finance.Category, error) {
	set := []string{}
	params := []bigquery.QueryParameter{
		{Name: "category_id", Value: id},
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return finance.Category{}, fmt.Errorf("UpdateCategory: name cannot be empty")
		}
		existing, err := r.FindCategoryByName(ctx, name)
		if err == nil && existing.ID != id {
			return finance.Category{}, fmt.Errorf("UpdateCategory %q: %w", name, ErrDuplicateCategory)
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return finance.Category{}, fmt.Errorf("UpdateCategory: checking for duplicate: %w", err)
		}
		set = append(set, "name = @name")
		params = append(params, bigquery.QueryParameter{Name: "name", Value: name})
	}
	if upd.Icon != nil {
		set = append(set, "icon = @icon")
		params = append(params, bigquery.QueryParameter{Name: "icon", Value: bigquery.NullString{StringVal: *upd.Icon, Valid: *upd.Icon != ""}})
	}

	if len(set) > 0 {
		err := r.runDML(ctx, fmt.Sprintf(`
			UPDATE %s
			SET %s
			WHERE category_id = @category_id
		`, r.table("categories"), strings.Join(set, ", ")), params)
		if err != nil {
			return finance.Category{}, fmt.Errorf("UpdateCategory: %w", err)
		}
	}

	return r.getCategory(ctx, id)
}

// DeleteCategory removes a category by id. Transactions keep their
// denormalized category name; only the canonical record goes away.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE category_id = @category_id
	`, r.table("categories")), []bigquery.QueryParameter{
		{Name: "category_id", Value: id},
	})
	if err != nil {
		return fmt.Errorf("DeleteCategory: %w", err)
	}
	return nil
}

func (r *Repository) getCategory(ctx context.Context, id string) (finance.Category, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE category_id = @category_id
		LIMIT 1
	`, categoryColumns, r.table("categories")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "category_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return finance.Category{}, fmt.Errorf("getCategory: reading query: %w", err)
	}

	var row CategoryRow
	err = it.Next(&row)
	if err == iterator.Done {
		return finance.Category{}, fmt.Errorf("getCategory %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return finance.Category{}, fmt.Errorf("getCategory: iterating: %w", err)
	}

	return row.toDomain(), nil
}
