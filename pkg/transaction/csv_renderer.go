package transaction

import (
	"bytes"
	"encoding/csv"

	log "github.com/sirupsen/logrus"
)

const csvDateLayout = "2006-01-02"

var csvHeader = []string{"Date", "Type", "Category", "Amount", "Description"}

type CsvRenderer interface {
	Render(transactions []Transaction) (string, error)
}

type CsvRendererImpl struct {
}

func NewCsvRenderer() *CsvRendererImpl {
	return &CsvRendererImpl{}
}

// Render writes one row per transaction below the header, keeping the given order.
func (c *CsvRendererImpl) Render(transactions []Transaction) (string, error) {
	data := make([][]string, 0, len(transactions)+1)
	data = append(data, csvHeader)
	for _, t := range transactions {
		data = append(data, []string{
			t.Date.UTC().Format(csvDateLayout),
			string(t.Type),
			t.Category,
			t.Amount.StringFixed(2),
			t.Description,
		})
	}

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		err := writer.Write(row)
		if err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}
