package provision

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// xlsxBytes builds an in-memory workbook with the given cell values on
// the first sheet. A nil row stays blank.
func xlsxBytes(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestRangeResolve(t *testing.T) {
	records, err := RangeRequest{Code: "AB", Start: 100, End: 102, RoleNames: []string{"Vakt", "Lege"}}.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	wantNumbers := []string{"100", "101", "102"}
	wantNames := []string{"Vakt", "Lege", ""}
	for i, rec := range records {
		if rec.Number != wantNumbers[i] || rec.Key != wantNumbers[i] {
			t.Fatalf("record %d number/key=%q/%q, want %q", i, rec.Number, rec.Key, wantNumbers[i])
		}
		if rec.Name != wantNames[i] {
			t.Fatalf("record %d name=%q, want %q", i, rec.Name, wantNames[i])
		}
		if rec.GroupCode != "ab" {
			t.Fatalf("record %d group=%q, want ab (lowercased)", i, rec.GroupCode)
		}
		if rec.Seq != i+1 {
			t.Fatalf("record %d seq=%d, want %d", i, rec.Seq, i+1)
		}
	}
}

func TestRangeResolve_SingleNumber(t *testing.T) {
	records, err := RangeRequest{Code: "ab", Start: 7, End: 7}.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(records) != 1 || records[0].Number != "7" {
		t.Fatalf("records=%+v, want one record for 7", records)
	}
}

func TestRangeResolve_Invalid(t *testing.T) {
	cases := []RangeRequest{
		{Code: "", Start: 1, End: 2},
		{Code: "   ", Start: 1, End: 2},
		{Code: "ab", Start: 5, End: 4},
		{Code: "ab", Start: -1, End: 4},
	}
	for _, req := range cases {
		if _, err := req.Resolve(); !IsValidation(err) {
			t.Fatalf("Resolve(%+v) err=%v, want validation error", req, err)
		}
	}

	_, err := RangeRequest{Code: "ab", Start: 0, End: maxRangeRecords + 5}.Resolve()
	if !IsValidation(err) {
		t.Fatalf("oversized range err=%v, want validation error", err)
	}
}

// An interval wide enough to overflow the record count must come back
// as a validation error, not a panic.
func TestRangeResolve_ExtremeInterval(t *testing.T) {
	cases := []RangeRequest{
		{Code: "ab", Start: 0, End: math.MaxInt64},
		{Code: "ab", Start: 1, End: math.MaxInt64},
		{Code: "ab", Start: math.MaxInt64, End: math.MaxInt64},
	}
	for _, req := range cases {
		records, err := req.Resolve()
		if req.Start == req.End {
			if err != nil || len(records) != 1 {
				t.Fatalf("Resolve(%+v)=(%d records, %v), want one record", req, len(records), err)
			}
			continue
		}
		if !IsValidation(err) {
			t.Fatalf("Resolve(%+v) err=%v, want validation error", req, err)
		}
	}
}

// Group codes become artifact and workbook filenames, so anything
// outside the filename-safe class is rejected before a path exists.
func TestRangeResolve_RejectsUnsafeCode(t *testing.T) {
	for _, code := range []string{"../../../tmp/pwn", "ab/cd", `ab\cd`, "ab..", "a b", "ab.", "æøå"} {
		_, err := RangeRequest{Code: code, Start: 1, End: 2}.Resolve()
		if !IsValidation(err) || err.Error() != "Ugyldig kode." {
			t.Fatalf("Resolve(code=%q) err=%v, want Ugyldig kode.", code, err)
		}
	}
}

func TestParseRoleNames(t *testing.T) {
	r := xlsxBytes(t, [][]any{{"Vakt"}, {""}, {"Lege"}, nil, {"Sykepleier"}})
	names, err := ParseRoleNames(r)
	if err != nil {
		t.Fatalf("ParseRoleNames: %v", err)
	}
	want := []string{"Vakt", "Lege", "Sykepleier"}
	if len(names) != len(want) {
		t.Fatalf("names=%v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names=%v, want %v", names, want)
		}
	}
}

func TestParseRoleNames_NotXLSX(t *testing.T) {
	_, err := ParseRoleNames(strings.NewReader("not a workbook"))
	if !IsValidation(err) {
		t.Fatalf("err=%v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "Kunne ikke lese xlsx-fil") {
		t.Fatalf("err=%q, want xlsx read message", err)
	}
}

func TestParseImportRows(t *testing.T) {
	r := xlsxBytes(t, [][]any{
		{"123456789012345", "Alice", "GRP"},
		{"987654321098765", "", "grp2"},
	})
	records, err := ParseImportRows(r)
	if err != nil {
		t.Fatalf("ParseImportRows: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Key != "123456789012345" || records[0].Name != "Alice" || records[0].GroupCode != "grp" {
		t.Fatalf("record 0 = %+v", records[0])
	}
	if records[1].Key != "987654321098765" || records[1].Name != "" || records[1].GroupCode != "grp2" {
		t.Fatalf("record 1 = %+v", records[1])
	}
	if records[0].Number != records[0].Key {
		t.Fatalf("import mode must use the IMEI as number, got %q", records[0].Number)
	}
}

// A bad row anywhere fails the whole import, reported with the row's
// 1-based position among non-blank rows.
func TestParseImportRows_BadIMEIFailsWholeRequest(t *testing.T) {
	r := xlsxBytes(t, [][]any{
		{"123456789012345", "Alice", "grp"},
		nil,
		{"12345", "Bob", "grp"},
	})
	_, err := ParseImportRows(r)
	if !IsValidation(err) {
		t.Fatalf("err=%v, want validation error", err)
	}
	if got := err.Error(); got != "Rad 2: ugyldig IMEI." {
		t.Fatalf("err=%q, want row 2 IMEI message", got)
	}
}

func TestParseImportRows_MissingGroupCode(t *testing.T) {
	r := xlsxBytes(t, [][]any{
		{"123456789012345", "Alice"},
	})
	_, err := ParseImportRows(r)
	if !IsValidation(err) || err.Error() != "Rad 1: kode mangler." {
		t.Fatalf("err=%v, want row 1 group code message", err)
	}
}

func TestParseImportRows_UnsafeGroupCode(t *testing.T) {
	r := xlsxBytes(t, [][]any{
		{"123456789012345", "Alice", "grp"},
		{"987654321098765", "Bob", "../escape"},
	})
	_, err := ParseImportRows(r)
	if !IsValidation(err) || err.Error() != "Rad 2: ugyldig kode." {
		t.Fatalf("err=%v, want row 2 code message", err)
	}
}

func TestParseImportRows_ScientificNotationIMEI(t *testing.T) {
	r := xlsxBytes(t, [][]any{
		{"1.23456789012345E+14", "Alice", "grp"},
	})
	records, err := ParseImportRows(r)
	if err != nil {
		t.Fatalf("ParseImportRows: %v", err)
	}
	if records[0].Key != "123456789012345" {
		t.Fatalf("Key=%q, want normalized IMEI", records[0].Key)
	}
}

func TestSingleResolve(t *testing.T) {
	rec, err := SingleRequest{
		Code:      "AB",
		IMEI:      "123456789012345",
		Phone:     "90012345",
		FirstName: "Kari",
		LastName:  "Nordmann",
	}.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.Key != "123456789012345" {
		t.Fatalf("Key=%q", rec.Key)
	}
	if rec.Number != "90012345" {
		t.Fatalf("Number=%q, want the phone number", rec.Number)
	}
	if rec.Name != "Kari Nordmann" {
		t.Fatalf("Name=%q", rec.Name)
	}
	if rec.GroupCode != "ab" {
		t.Fatalf("GroupCode=%q", rec.GroupCode)
	}
}

func TestSingleResolve_NameFallback(t *testing.T) {
	rec, err := SingleRequest{
		Code:     "ab",
		IMEI:     "123456789012345",
		Phone:    "90012345",
		Name:     "Kari",
		LastName: "Nordmann",
	}.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.Name != "Kari Nordmann" {
		t.Fatalf("Name=%q, want fallback from name field", rec.Name)
	}
}

func TestSingleResolve_FieldErrors(t *testing.T) {
	base := SingleRequest{
		Code:      "ab",
		IMEI:      "123456789012345",
		Phone:     "90012345",
		FirstName: "Kari",
		LastName:  "Nordmann",
	}
	cases := []struct {
		name    string
		mutate  func(*SingleRequest)
		wantMsg string
	}{
		{"missing code", func(r *SingleRequest) { r.Code = " " }, "Kode er påkrevd."},
		{"unsafe code", func(r *SingleRequest) { r.Code = "../../tmp/pwn" }, "Ugyldig kode."},
		{"bad imei", func(r *SingleRequest) { r.IMEI = "123" }, "Ugyldig IMEI."},
		{"missing phone", func(r *SingleRequest) { r.Phone = "" }, "Telefonnummer er påkrevd."},
		{"missing first name", func(r *SingleRequest) { r.FirstName = ""; r.Name = "" }, "Fornavn er påkrevd."},
		{"missing last name", func(r *SingleRequest) { r.LastName = "" }, "Etternavn er påkrevd."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := req.Resolve()
			if !IsValidation(err) || err.Error() != tc.wantMsg {
				t.Fatalf("err=%v, want %q", err, tc.wantMsg)
			}
		})
	}
}
