package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymap/moneymap/pkg/api"
	"github.com/moneymap/moneymap/pkg/store"
)

func sampleRecords() []store.StoredRecord {
	return []store.StoredRecord{
		{
			TransactionID: "05-06-24_1234.56_merchant name",
			FetchedDate:   time.Date(2024, time.June, 6, 10, 0, 0, 0, time.UTC),
			Transaction: api.Transaction{
				Date: "05-06-24", Amount: 1234.56, VPAID: "merchant@upi",
				PartyName: "merchant name", Bank: "HDFC", Category: "Shopping",
			},
		},
		{
			TransactionID: "12/02/24_2000.00_PAYEE NAME",
			FetchedDate:   time.Date(2024, time.February, 13, 9, 30, 0, 0, time.UTC),
			Transaction: api.Transaction{
				Date: "12/02/24", Amount: 2000, VPAID: "payee@paytm",
				PartyName: "PAYEE NAME", Bank: "SBI",
			},
		},
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "1234.56", rows[1][2])
	assert.Equal(t, "merchant@upi", rows[1][4])
	assert.Equal(t, "SBI", rows[2][5])
	assert.Equal(t, "", rows[2][6])
}

func TestCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleRecords()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	assert.Equal(t, "05-06-24_1234.56_merchant name", decoded[0]["transaction_id"])
	assert.Equal(t, 1234.56, decoded[0]["amount"])
	assert.Equal(t, "payee@paytm", decoded[1]["vpa_id"])
	// Category is omitted when empty.
	_, hasCategory := decoded[1]["category"]
	assert.False(t, hasCategory)
}

func TestJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, nil))
	assert.Equal(t, "[]", string(bytes.TrimSpace(buf.Bytes())))
}
