package report

import (
	"bytes"
	"testing"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample(t).View(), 2024); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "OR #,Date,Payor,Label,Loans / Principal,Loans / Interest,Total,Comments\n" +
		"1,2024-01-05,Alice,Depositor,100,5.5,105.5,c\n" +
		"2,2024-01-09,Alice,Depositor,50,,50,c\n" +
		"3,2024-03-01,Alice,Depositor,,2,2,c\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", got, want)
	}
}
