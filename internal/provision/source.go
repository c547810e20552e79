package provision

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sikt-tools/provgen/internal/imei"
)

// MsgFillAllFields matches the message the operator UI has shown since
// the first version of the tool.
const MsgFillAllFields = "Vennligst fyll ut alle feltene korrekt. Kode er påkrevd."

// maxRangeRecords bounds a single range request. The largest real
// batches are a few thousand handsets.
const maxRangeRecords = 100_000

// Group codes name artifact files and the workbook, so they must stay
// within a filename-safe class. Checked after lowercasing.
var groupCodePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidGroupCode reports whether code is safe to embed in artifact and
// workbook filenames.
func ValidGroupCode(code string) bool {
	return groupCodePattern.MatchString(code)
}

// RangeRequest provisions a numeric interval of extension numbers.
// RoleNames optionally assigns display names by position.
type RangeRequest struct {
	Code      string
	Start     int64
	End       int64
	RoleNames []string
}

func (r RangeRequest) Resolve() ([]Record, error) {
	code := strings.ToLower(strings.TrimSpace(r.Code))
	if code == "" || r.Start < 0 || r.Start > r.End {
		return nil, invalidf(MsgFillAllFields)
	}
	if !ValidGroupCode(code) {
		return nil, invalidf("Ugyldig kode.")
	}
	// Compare the difference, not Start+total: End-Start cannot
	// overflow once Start is non-negative.
	if r.End-r.Start >= maxRangeRecords {
		return nil, invalidf("For stort intervall: maks %d numre per kjøring.", maxRangeRecords)
	}
	total := r.End - r.Start + 1

	records := make([]Record, 0, total)
	for i := int64(0); i < total; i++ {
		number := strconv.FormatInt(r.Start+i, 10)
		name := ""
		if int(i) < len(r.RoleNames) {
			name = r.RoleNames[i]
		}
		records = append(records, Record{
			Key:       number,
			Number:    number,
			Name:      name,
			GroupCode: code,
			Seq:       int(i) + 1,
		})
	}
	return records, nil
}

// ParseRoleNames reads the first column of the first sheet, one name
// per non-empty cell, in row order.
func ParseRoleNames(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, invalidf("Kunne ikke lese xlsx-fil: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, invalidf("Kunne ikke lese xlsx-fil: %v", err)
	}
	var names []string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if name := strings.TrimSpace(row[0]); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// ParseImportRows reads device rows from the first sheet: column 1 the
// IMEI, column 2 an optional display name, column 3 the group code.
// Fully blank rows are skipped. Any malformed row fails the whole
// request with its 1-based row number; nothing is provisioned from a
// partially valid file.
func ParseImportRows(r io.Reader) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, invalidf("Kunne ikke lese xlsx-fil: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, invalidf("Kunne ikke lese xlsx-fil: %v", err)
	}

	var records []Record
	row := 0
	for _, cells := range rows {
		if blankRow(cells) {
			continue
		}
		row++

		key, err := imei.Normalize(cell(cells, 0))
		if err != nil {
			return nil, invalidf("Rad %d: ugyldig IMEI.", row)
		}
		group := strings.ToLower(strings.TrimSpace(cell(cells, 2)))
		if group == "" {
			return nil, invalidf("Rad %d: kode mangler.", row)
		}
		if !ValidGroupCode(group) {
			return nil, invalidf("Rad %d: ugyldig kode.", row)
		}
		records = append(records, Record{
			Key:       key,
			Number:    key,
			Name:      strings.TrimSpace(cell(cells, 1)),
			GroupCode: group,
			Seq:       row,
		})
	}
	return records, nil
}

// SingleRequest provisions one handset for a named person. Name is an
// accepted alias for FirstName kept for older portal clients.
type SingleRequest struct {
	Code      string
	IMEI      string
	Phone     string
	FirstName string
	Name      string
	LastName  string
}

func (r SingleRequest) Resolve() (Record, error) {
	code := strings.ToLower(strings.TrimSpace(r.Code))
	if code == "" {
		return Record{}, invalidf("Kode er påkrevd.")
	}
	if !ValidGroupCode(code) {
		return Record{}, invalidf("Ugyldig kode.")
	}
	key, err := imei.Normalize(r.IMEI)
	if err != nil {
		return Record{}, invalidf("Ugyldig IMEI.")
	}
	phone := strings.TrimSpace(r.Phone)
	if phone == "" {
		return Record{}, invalidf("Telefonnummer er påkrevd.")
	}
	first := strings.TrimSpace(r.FirstName)
	if first == "" {
		first = strings.TrimSpace(r.Name)
	}
	if first == "" {
		return Record{}, invalidf("Fornavn er påkrevd.")
	}
	last := strings.TrimSpace(r.LastName)
	if last == "" {
		return Record{}, invalidf("Etternavn er påkrevd.")
	}
	return Record{
		Key:       key,
		Number:    phone,
		Name:      first + " " + last,
		GroupCode: code,
		Seq:       1,
	}, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}
