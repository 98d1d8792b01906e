package catalog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-price-analyzer/models"
)

// Load reads a product catalog from disk, dispatching on the file
// extension. Supported formats are .csv and .json.
func Load(filename string) ([]*models.Product, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ReadCSV(f)
	case ".json":
		return ReadJSON(f)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(filename))
	}
}

// ReadCSV parses a header-driven CSV catalog. Column order is free,
// unknown columns are ignored, and imported products get fresh IDs.
func ReadCSV(r io.Reader) ([]*models.Product, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	if _, ok := columns["name"]; !ok {
		return nil, fmt.Errorf("csv header missing required column %q", "name")
	}

	var products []*models.Product
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		line++

		product, err := productFromRecord(columns, record)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		products = append(products, product)
	}

	return products, nil
}

func productFromRecord(columns map[string]int, record []string) (*models.Product, error) {
	cell := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	product := &models.Product{
		ID:          models.NewProductID(),
		Name:        cell("name"),
		Description: cell("description"),
	}

	if raw := cell("quantity"); raw != "" {
		qty, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse quantity %q: %w", raw, err)
		}
		product.Quantity = qty
	}
	var err error
	if product.PurchasePrice, err = parseCell(cell("purchasePrice")); err != nil {
		return nil, err
	}
	if product.SalePrice, err = parseCell(cell("salePrice")); err != nil {
		return nil, err
	}
	if product.CompetitorNewPrice, err = parseOptionalCell(cell("competitorNewPrice")); err != nil {
		return nil, err
	}
	if product.CompetitorUsedPrice, err = parseOptionalCell(cell("competitorUsedPrice")); err != nil {
		return nil, err
	}
	if raw := cell("lastUpdated"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("parse lastUpdated %q: %w", raw, err)
		}
		product.LastUpdated = &ts
	}

	if err := models.ValidateProduct(product); err != nil {
		return nil, err
	}
	return product, nil
}

func parseCell(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	return v, nil
}

func parseOptionalCell(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", raw, err)
	}
	return &v, nil
}

// ReadJSON parses a JSON array catalog. Imported products get fresh
// IDs regardless of any id field in the input.
func ReadJSON(r io.Reader) ([]*models.Product, error) {
	var products []*models.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode json catalog: %w", err)
	}

	for i, product := range products {
		if product == nil {
			return nil, fmt.Errorf("json catalog entry %d is null", i)
		}
		product.ID = models.NewProductID()
		if err := models.ValidateProduct(product); err != nil {
			return nil, fmt.Errorf("json catalog entry %d: %w", i, err)
		}
	}

	return products, nil
}
