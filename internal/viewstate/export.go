package viewstate

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"crm-contacts/internal/models"

	"github.com/skip2/go-qrcode"
)

// WriteCSV writes one header row then one row per contact, using the
// formatted cell text of each column.
func WriteCSV(w io.Writer, columns []ColumnID, contacts []models.Contact, groups map[string][]models.Group) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(columns))
	for _, id := range columns {
		if id == ColActions {
			continue
		}
		col, ok := LookupColumn(id)
		if !ok {
			header = append(header, string(id))
			continue
		}
		header = append(header, col.Label)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i := range contacts {
		c := &contacts[i]
		ctx := CellContext{Groups: groups[c.ID]}
		record := make([]string, 0, len(header))
		for _, id := range columns {
			if id == ColActions {
				continue
			}
			record = append(record, FormatCell(id, c, ctx))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", c.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatCell renders one cell; unknown columns render empty.
func FormatCell(id ColumnID, c *models.Contact, ctx CellContext) string {
	col, ok := LookupColumn(id)
	if !ok || col.Format == nil {
		return ""
	}
	return col.Format(c, ctx)
}

var vcardEscaper = strings.NewReplacer(`\`, `\\`, ",", `\,`, ";", `\;`, "\n", `\n`)

// VCard renders a contact as a vCard 3.0 document.
func VCard(c *models.Contact) string {
	first, last := c.NameParts()
	esc := vcardEscaper.Replace

	var b strings.Builder
	b.WriteString("BEGIN:VCARD\r\nVERSION:3.0\r\n")
	fmt.Fprintf(&b, "N:%s;%s;;;\r\n", esc(last), esc(first))
	fmt.Fprintf(&b, "FN:%s\r\n", esc(c.DisplayName()))
	if c.CompanyName != "" {
		fmt.Fprintf(&b, "ORG:%s\r\n", esc(c.CompanyName))
	}
	if c.JobTitle != "" {
		fmt.Fprintf(&b, "TITLE:%s\r\n", esc(c.JobTitle))
	}
	if c.Email != "" {
		fmt.Fprintf(&b, "EMAIL;TYPE=INTERNET:%s\r\n", esc(c.Email))
	}
	if phone := formatPhone(c); phone != "" {
		fmt.Fprintf(&b, "TEL;TYPE=CELL:%s\r\n", esc(phone))
	}
	if c.AddressLine != "" || c.City != "" || c.Country != "" {
		fmt.Fprintf(&b, "ADR;TYPE=WORK:;;%s;%s;%s;%s;%s\r\n",
			esc(c.AddressLine), esc(c.City), esc(c.State), esc(c.PostalCode), esc(c.Country))
	}
	if c.Website != "" {
		fmt.Fprintf(&b, "URL:%s\r\n", esc(c.Website))
	}
	if c.Notes != "" {
		fmt.Fprintf(&b, "NOTE:%s\r\n", esc(c.Notes))
	}
	b.WriteString("END:VCARD\r\n")
	return b.String()
}

// ContactQRCode encodes the contact's vCard as a PNG QR code.
func ContactQRCode(c *models.Contact, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(VCard(c), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code for contact %s: %w", c.ID, err)
	}
	return png, nil
}
