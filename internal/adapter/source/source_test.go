package source_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/txpipeline/internal/adapter/source"
	"github.com/iho/txpipeline/internal/domain"
	"github.com/iho/txpipeline/internal/usecase"
)

const storeCSV = `Transaction_ID,Timestamp,Customer_ID,Amount,Currency,Payment_Method,Status,Region
1,2024-01-02,C1,"1,200.50",usd,card,completed,north
2,2024-01-03,C2,,EUR,cash,pending,
`

const onlineJSON = `{"data": [
  {"id": "O-1", "channel": "web", "customer": {"id": "C9"}, "total": {"amount": 15.75, "currency": "gbp"},
   "occurred_at": "2024-02-01T10:00:00Z", "payment": {"method": "paypal"}, "status": "completed", "tags": ["a", "b"]},
  {"id": 2, "customer": {"id": "C8"}, "total": {"amount": "20", "currency": "EUR"}, "occurred_at": "2024-02-02"}
]}`

const partnerXML = `<?xml version="1.0"?>
<Transactions>
  <Batch>
    <Transaction id="P-1">
      <Customer id="C5"/>
      <Amount currency="JPY">1500</Amount>
      <When>2025-08-31T06:25:00Z</When>
      <Payment method="bank_transfer"/>
    </Transaction>
  </Batch>
  <Transaction id="P-2">
    <Amount currency="GBP"> 15.75 </Amount>
  </Transaction>
</Transactions>`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestParseCSV(t *testing.T) {
	rows, err := source.ParseCSV(strings.NewReader(storeCSV))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "1,200.50", rows[0]["Amount"])
	assert.Nil(t, rows[1]["Amount"])
	assert.Nil(t, rows[1]["Region"])
}

func TestParseCSV_Empty(t *testing.T) {
	rows, err := source.ParseCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseJSON(t *testing.T) {
	rows, err := source.ParseJSON(strings.NewReader(onlineJSON))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "C9", rows[0]["customer.id"])
	assert.Equal(t, json.Number("15.75"), rows[0]["total.amount"])
	assert.Equal(t, `["a","b"]`, rows[0]["tags"])
	assert.Equal(t, json.Number("2"), rows[1]["id"])
}

func TestParseJSON_TopLevelArray(t *testing.T) {
	rows, err := source.ParseJSON(strings.NewReader(`[{"id": "1"}]`))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0]["id"])
}

func TestParseJSON_Malformed(t *testing.T) {
	tests := []string{`{"items": []}`, `"hello"`, `[1, 2]`, `{`}
	for _, input := range tests {
		_, err := source.ParseJSON(strings.NewReader(input))
		assert.Error(t, err, input)
	}
}

func TestParseXML(t *testing.T) {
	rows, err := source.ParseXML(strings.NewReader(partnerXML))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "P-1", rows[0]["id"])
	assert.Equal(t, "C5", rows[0]["Customer.id"])
	assert.Equal(t, "1500", rows[0]["Amount"])
	assert.Equal(t, "JPY", rows[0]["Amount.currency"])
	assert.Equal(t, "2025-08-31T06:25:00Z", rows[0]["When"])
	assert.Equal(t, "bank_transfer", rows[0]["Payment.method"])

	assert.Equal(t, "15.75", rows[1]["Amount"])
	_, hasCustomer := rows[1]["Customer.id"]
	assert.False(t, hasCustomer)
}

func TestMapping_Apply(t *testing.T) {
	m := source.DefaultMapping()

	rec := m.Apply(map[string]any{
		" Transaction_ID ": "1",
		"Amount":           "10",
		"total":            "99",
		"CCY":              "eur",
		"Region":           "north",
	})

	assert.Equal(t, "1", rec[domain.FieldTransactionID])
	assert.Equal(t, "10", rec[domain.FieldAmountOriginal])
	assert.Equal(t, "eur", rec[domain.FieldCurrency])
	assert.Equal(t, "north", rec["region"])
	assert.Equal(t, "99", rec["total"])
	_, hasAmount := rec["amount"]
	assert.False(t, hasAmount, "consumed alias must not pass through")
}

func TestLoadMapping_Override(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mapping.yaml", "fields:\n  customer_id: [Account]\n")

	m, err := source.LoadMapping(filepath.Join(dir, "mapping.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"account"}, m.Fields[domain.FieldCustomerID])
	assert.Contains(t, m.Fields[domain.FieldTransactionID], "txn_id")
}

func TestLoadMapping_UnknownField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mapping.yaml", "fields:\n  colour: [color]\n")

	_, err := source.LoadMapping(filepath.Join(dir, "mapping.yaml"))
	assert.Error(t, err)
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "transactions_storeA.csv", storeCSV)
	writeFile(t, dir, "transactions_online.json", onlineJSON)
	writeFile(t, dir, "transactions_partner.xml", partnerXML)
	writeFile(t, dir, "b_extra.csv", "id,amount,currency\nX1,5,USD\n")
	writeFile(t, dir, "a_broken.json", "{not json")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0o755))

	loader := source.NewLoader(nil, zerolog.Nop())
	batches, err := loader.Load(context.Background(), dir)
	require.NoError(t, err)

	var tags []string
	for _, b := range batches {
		tags = append(tags, b.Source)
	}
	assert.Equal(t, []string{"storeA_csv", "online_json", "partner_xml", "b_extra"}, tags)

	store := batches[0].Records
	require.Len(t, store, 2)
	assert.Equal(t, "1,200.50", store[0][domain.FieldAmountOriginal])
	assert.Equal(t, "north", store[0]["region"])

	online := batches[1].Records
	assert.Equal(t, "web", online[0]["channel"], "channel passes through as an extra column")
	assert.Equal(t, "C9", online[0][domain.FieldCustomerID])
	assert.Equal(t, "gbp", online[0][domain.FieldCurrency])
	assert.Equal(t, "paypal", online[0][domain.FieldPaymentMethod])

	partner := batches[2].Records
	assert.Equal(t, "P-1", partner[0][domain.FieldTransactionID])
	assert.Equal(t, "JPY", partner[0][domain.FieldCurrency])
	assert.Equal(t, "2025-08-31T06:25:00Z", partner[0][domain.FieldTimestamp])
}

func TestLoader_MissingDir(t *testing.T) {
	loader := source.NewLoader(nil, zerolog.Nop())
	batches, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestLoader_LoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.xml", "<Transaction id='1'>")
	loader := source.NewLoader(nil, zerolog.Nop())

	_, err := loader.LoadFile(filepath.Join(dir, "bad.xml"), "bad")
	assert.True(t, errors.Is(err, domain.ErrMalformedSource), "got %v", err)

	_, err = loader.LoadFile(filepath.Join(dir, "data.parquet"), "data")
	assert.True(t, errors.Is(err, domain.ErrUnsupportedSource), "got %v", err)
}

func TestLoader_AdapterTagWinsOverSourceColumns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "transactions_storeA.csv", "id,source,amount,currency\n2,zzz,5,USD\n")
	writeFile(t, dir, "transactions_online.json", `[{"id": "1", "channel": "mobile", "total": {"amount": 3, "currency": "USD"}}]`)

	batches, err := source.NewLoader(nil, zerolog.Nop()).Load(context.Background(), dir)
	require.NoError(t, err)

	records := usecase.Aggregate(batches)
	require.Len(t, records, 2)
	assert.Equal(t, "2", records[0][domain.FieldTransactionID])
	assert.Equal(t, "storeA_csv", records[0][domain.FieldSource])
	assert.Equal(t, "1", records[1][domain.FieldTransactionID])
	assert.Equal(t, "online_json", records[1][domain.FieldSource])
}

func TestLoadMapping_RejectsSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mapping.yaml", "fields:\n  source: [channel]\n")

	_, err := source.LoadMapping(filepath.Join(dir, "mapping.yaml"))
	assert.Error(t, err)
}

func TestMapping_CustomerAttributeBeatsText(t *testing.T) {
	rows, err := source.ParseXML(strings.NewReader(`<Transactions><Transaction id="X1"><Customer id="C1">Bob</Customer></Transaction></Transactions>`))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rec := source.DefaultMapping().Apply(rows[0])
	assert.Equal(t, "C1", rec[domain.FieldCustomerID])
	assert.Equal(t, "Bob", rec["customer"])
}
