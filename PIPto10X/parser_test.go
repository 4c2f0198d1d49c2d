package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testSpacers = [nbSpacers]string{"ATG", "GAG", "TCGAG"}

func buildTestIndexes(t *testing.T, oneMismatch bool) [nbBarcodes]*BarcodeIndex {
	t.Helper()

	var indexes [nbBarcodes]*BarcodeIndex

	indexes[0] = loadBarcodeIndex(writeWhitelist(t, "bc1.txt", "AGAAACCA", "TCTTTGAC"), oneMismatch)
	indexes[1] = loadBarcodeIndex(writeWhitelist(t, "bc2.txt", "TCTGTG", "GTAATC"), oneMismatch)
	indexes[2] = loadBarcodeIndex(writeWhitelist(t, "bc3.txt", "AAAGTG", "CTGAAG"), oneMismatch)
	indexes[3] = loadBarcodeIndex(writeWhitelist(t, "bc4.txt", "CTGGGTAT", "AAACTACA"), oneMismatch)

	return indexes
}

func buildTestRead(prefix string, bc1 string, bc2 string, bc3 string, bc4 string, umi string) string {
	read := prefix + bc1 + "ATG" + bc2 + "GAG" + bc3 + "TCGAG" + bc4 + umi

	for len(read) < 90 {
		read += "A"
	}

	return read
}

func TestBuildSchema(t *testing.T) {
	indexes := buildTestIndexes(t, true)
	schema := buildSchema(indexes, testSpacers, 12)

	assert.Equal(t, 28, schema.BarcodeLength)
	assert.Equal(t, 12, schema.UmiLength)
	assert.Equal(t, 28+3+3+5, schema.MinLength())
	assert.Len(t, schema.Segments, nbBarcodes+nbSpacers+1)
}

func TestExtractAtOffsets(t *testing.T) {
	indexes := buildTestIndexes(t, true)
	schema := buildSchema(indexes, testSpacers, 12)

	tests := []struct {
		name       string
		prefix     string
		maxOffset  int
		wantOk     bool
		wantOffset int
	}{
		{"no prefix", "", 5, true, 0},
		{"prefix within window", "GT", 5, true, 2},
		{"prefix at window edge", "GTCAG", 5, true, 5},
		{"prefix beyond window", "GTCAGT", 5, false, 0},
		{"window disabled", "GT", 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			read := buildTestRead(tt.prefix, "AGAAACCA", "TCTGTG", "AAAGTG", "CTGGGTAT",
				"ACGTACGTACGT")

			extraction, ok := schema.Extract(read, tt.maxOffset)
			assert.Equal(t, tt.wantOk, ok)

			if tt.wantOk {
				assert.Equal(t, tt.wantOffset, extraction.Offset)
				assert.Equal(t, "AGAAACCA", extraction.Barcodes[0])
				assert.Equal(t, "TCTGTG", extraction.Barcodes[1])
				assert.Equal(t, "AAAGTG", extraction.Barcodes[2])
				assert.Equal(t, "CTGGGTAT", extraction.Barcodes[3])
				assert.Equal(t, "ACGTACGTACGT", extraction.UMI)
				assert.Equal(t, tt.wantOffset+39+12, extraction.End)
			}
		})
	}
}

func TestExtractLowestOffsetWins(t *testing.T) {
	// every offset anchors the spacers on an all-A read with all-A
	// whitelist entries; the parser must pick offset 0
	var indexes [nbBarcodes]*BarcodeIndex

	indexes[0] = loadBarcodeIndex(writeWhitelist(t, "bc1.txt", "AAAAAAAA"), true)
	indexes[1] = loadBarcodeIndex(writeWhitelist(t, "bc2.txt", "AAAAAA"), true)
	indexes[2] = loadBarcodeIndex(writeWhitelist(t, "bc3.txt", "AAAAAA"), true)
	indexes[3] = loadBarcodeIndex(writeWhitelist(t, "bc4.txt", "AAAAAAAA"), true)

	schema := buildSchema(indexes, [nbSpacers]string{"AAA", "AAA", "AAAAA"}, 12)

	extraction, ok := schema.Extract(strings.Repeat("A", 90), 5)
	assert.True(t, ok)
	assert.Equal(t, 0, extraction.Offset)
}

func TestExtractShortRead(t *testing.T) {
	indexes := buildTestIndexes(t, true)
	schema := buildSchema(indexes, testSpacers, 12)

	_, ok := schema.Extract("AGAAACCAATGTCTGTG", 5)
	assert.False(t, ok)
}

func TestExtractTruncatedUMI(t *testing.T) {
	indexes := buildTestIndexes(t, true)
	schema := buildSchema(indexes, testSpacers, 12)

	// barcodes and spacers complete, UMI cut short: extraction
	// succeeds, the matching engine rejects downstream
	read := "AGAAACCA" + "ATG" + "TCTGTG" + "GAG" + "AAAGTG" + "TCGAG" + "CTGGGTAT" + "ACGT"

	extraction, ok := schema.Extract(read, 5)
	assert.True(t, ok)
	assert.Equal(t, "ACGT", extraction.UMI)

	outcome := resolveConstruct(&extraction, indexes, schema, false)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, stageUMI, outcome.Stage)
}

func TestResolveConstruct(t *testing.T) {
	indexes := buildTestIndexes(t, true)
	schema := buildSchema(indexes, testSpacers, 12)

	tests := []struct {
		name        string
		barcodes    [nbBarcodes]string
		umi         string
		wantAccept  bool
		wantStage   int
		wantBarcode string
	}{
		{
			name:        "all exact",
			barcodes:    [nbBarcodes]string{"AGAAACCA", "TCTGTG", "AAAGTG", "CTGGGTAT"},
			umi:         "ACGTACGTACGT",
			wantAccept:  true,
			wantBarcode: "AGAAACCATCTGTGAAAGTGCTGGGTAT",
		},
		{
			name:        "one mismatch in bc2 corrected",
			barcodes:    [nbBarcodes]string{"AGAAACCA", "TCTGTC", "AAAGTG", "CTGGGTAT"},
			umi:         "ACGTACGTACGT",
			wantAccept:  true,
			wantBarcode: "AGAAACCATCTGTGAAAGTGCTGGGTAT",
		},
		{
			name:       "two mismatches in bc1",
			barcodes:   [nbBarcodes]string{"AGAAATTA", "TCTGTG", "AAAGTG", "CTGGGTAT"},
			umi:        "ACGTACGTACGT",
			wantAccept: false,
			wantStage:  stageBarcode1,
		},
		{
			name:       "bc3 unknown short-circuits before bc4",
			barcodes:   [nbBarcodes]string{"AGAAACCA", "TCTGTG", "GGGGGG", "AAAAAAAA"},
			umi:        "ACGTACGTACGT",
			wantAccept: false,
			wantStage:  stageBarcode3,
		},
		{
			name:       "umi with N",
			barcodes:   [nbBarcodes]string{"AGAAACCA", "TCTGTG", "AAAGTG", "CTGGGTAT"},
			umi:        "ACGTACGTACGN",
			wantAccept: false,
			wantStage:  stageUMI,
		},
		{
			name:       "umi too short",
			barcodes:   [nbBarcodes]string{"AGAAACCA", "TCTGTG", "AAAGTG", "CTGGGTAT"},
			umi:        "ACGT",
			wantAccept: false,
			wantStage:  stageUMI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extraction := Extraction{Barcodes: tt.barcodes, UMI: tt.umi}

			outcome := resolveConstruct(&extraction, indexes, schema, false)
			assert.Equal(t, tt.wantAccept, outcome.Accepted)

			if tt.wantAccept {
				assert.Equal(t, tt.wantBarcode, outcome.Barcode)
				assert.Equal(t, tt.umi, outcome.UMI)
				assert.Len(t, outcome.Barcode, schema.BarcodeLength)
			} else {
				assert.Equal(t, tt.wantStage, outcome.Stage)
			}
		})
	}
}

func TestResolveConstructWithLinkers(t *testing.T) {
	indexes := buildTestIndexes(t, true)
	schema := buildSchema(indexes, testSpacers, 12)

	extraction := Extraction{
		Barcodes: [nbBarcodes]string{"AGAAACCA", "TCTGTG", "AAAGTG", "CTGGGTAT"},
		UMI:      "ACGTACGTACGT",
	}

	outcome := resolveConstruct(&extraction, indexes, schema, true)
	assert.True(t, outcome.Accepted)
	assert.Equal(t, "AGAAACCA"+"ATG"+"TCTGTG"+"GAG"+"AAAGTG"+"TCGAG"+"CTGGGTAT",
		outcome.Barcode)
}
