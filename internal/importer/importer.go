// Package importer bulk-registers customers from CSV files.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"customer-service/internal/domain"
	customersvc "customer-service/internal/service/customer"
	"go.uber.org/zap"
)

// CustomerRegistrar is the subset of the customer service an import needs.
type CustomerRegistrar interface {
	ValidateNew(ctx context.Context, in customersvc.NewCustomerInput) error
	FromDTO(in customersvc.NewCustomerInput) (domain.Customer, error)
	Insert(ctx context.Context, c domain.Customer) (*domain.Customer, error)
}

// CSVImporter reads one customer registration per row. Rows that fail
// validation are skipped and logged; any other error stops the run.
type CSVImporter struct {
	reader    *csv.Reader
	customers CustomerRegistrar
	logger    *zap.Logger
	skipped   int
}

func NewCSVImporter(r io.Reader, customers CustomerRegistrar, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // optional trailing phone columns may be omitted
	csvr.TrimLeadingSpace = true
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{
		reader:    csvr,
		customers: customers,
		logger:    logger,
	}
}

// Skipped is the number of rows rejected by validation in the last Run.
func (i *CSVImporter) Skipped() int {
	return i.skipped
}

// Run registers every row and returns how many customers were created.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, required := range []string{"nome", "email", "cpfOuCnpj", "tipo", "senha", "cidadeId"} {
		if _, ok := index[required]; !ok {
			return 0, fmt.Errorf("missing column %q", required)
		}
	}

	var imported int
	i.skipped = 0
	for line := 2; ; line++ {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		in, err := parseRow(record, index)
		if err == nil {
			err = i.save(ctx, in)
		}
		var verr *domain.ValidationError
		switch {
		case err == nil:
			imported++
		case errors.As(err, &verr):
			i.skipped++
			i.logger.Warn("import: row rejected", zap.Int("line", line), zap.String("email", in.Email), zap.Error(err))
		default:
			return imported, fmt.Errorf("row %d: %w", line, err)
		}
	}

	i.logger.Info("import finished", zap.Int("imported", imported), zap.Int("skipped", i.skipped))
	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, in customersvc.NewCustomerInput) error {
	if err := i.customers.ValidateNew(ctx, in); err != nil {
		return err
	}
	c, err := i.customers.FromDTO(in)
	if err != nil {
		return err
	}
	if _, err := i.customers.Insert(ctx, c); err != nil {
		return fmt.Errorf("insert customer %q: %w", in.Email, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) (customersvc.NewCustomerInput, error) {
	in := customersvc.NewCustomerInput{
		Name:       pick(record, index, "nome"),
		Email:      pick(record, index, "email"),
		TaxID:      domain.NormalizeTaxID(pick(record, index, "cpfOuCnpj")),
		Password:   pick(record, index, "senha"),
		Street:     pick(record, index, "logradouro"),
		Number:     pick(record, index, "numero"),
		Complement: pick(record, index, "complemento"),
		District:   pick(record, index, "bairro"),
		PostalCode: pick(record, index, "cep"),
		Phone1:     pick(record, index, "telefone1"),
		Phone2:     optional(pick(record, index, "telefone2")),
		Phone3:     optional(pick(record, index, "telefone3")),
	}

	verr := &domain.ValidationError{}
	if in.Name == "" {
		verr.Add("nome", "required field")
	}
	if in.Email == "" {
		verr.Add("email", "required field")
	}
	if in.Password == "" {
		verr.Add("senha", "required field")
	}
	typ, err := strconv.Atoi(pick(record, index, "tipo"))
	if err != nil {
		verr.Add("tipo", "must be a number")
	}
	in.Type = typ
	city, err := strconv.ParseInt(pick(record, index, "cidadeId"), 10, 64)
	if err != nil {
		verr.Add("cidadeId", "must be a number")
	}
	in.CityID = city

	if !verr.Empty() {
		return in, verr
	}
	return in, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
