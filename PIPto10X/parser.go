package main

import (
	"fmt"
	"log"
	"strings"
)

/*nbBarcodes number of barcode segments in the read 1 construct */
const nbBarcodes = 4

/*nbSpacers number of fixed spacers between the barcode segments */
const nbSpacers = 3

/*Rejection stages. Stages 1 to 4 correspond to the four barcode
segments; failed construct placement counts toward stage 1 */
const (
	stageBarcode1 = iota + 1
	stageBarcode2
	stageBarcode3
	stageBarcode4
	stageUMI
)

/*Segment kinds */
const (
	segmentBarcode = iota
	segmentSpacer
	segmentUMI
)

/*Segment one typed element of the read 1 construct */
type Segment struct {
	Kind     int
	Length   int
	Sequence string
}

/*ConstructSchema fixed layout of read 1: bc1, spacer1, bc2, spacer2,
bc3, spacer3, bc4, UMI. Built once from the whitelists and the config,
read-only afterwards */
type ConstructSchema struct {
	Segments      []Segment
	BarcodeLength int
	UmiLength     int
	minLength     int
}

/*Extraction raw segments sliced out of read 1. End is the position
just after the UMI */
type Extraction struct {
	Barcodes [nbBarcodes]string
	UMI      string
	Offset   int
	End      int
}

/*MatchOutcome result of resolving one extraction against the four
whitelists */
type MatchOutcome struct {
	Accepted bool
	Stage    int
	Barcode  string
	UMI      string
	Segments [nbBarcodes]string
}

/*buildSchema assemble the construct schema from the whitelist segment
lengths and the configured spacers */
func buildSchema(indexes [nbBarcodes]*BarcodeIndex, spacers [nbSpacers]string, umiLen int) *ConstructSchema {

	if umiLen <= 0 {
		log.Fatal(fmt.Sprintf("#### invalid UMI length: %d\n", umiLen))
	}

	schema := &ConstructSchema{UmiLength: umiLen}

	for i, index := range indexes {
		schema.Segments = append(schema.Segments,
			Segment{Kind: segmentBarcode, Length: index.Length()})
		schema.BarcodeLength += index.Length()

		if i < nbSpacers {
			schema.Segments = append(schema.Segments,
				Segment{Kind: segmentSpacer, Length: len(spacers[i]), Sequence: spacers[i]})
			schema.minLength += len(spacers[i])
		}
	}

	schema.Segments = append(schema.Segments, Segment{Kind: segmentUMI, Length: umiLen})
	schema.minLength += schema.BarcodeLength

	return schema
}

/*MinLength minimum read length holding all barcodes and spacers at
offset 0, UMI excluded */
func (schema *ConstructSchema) MinLength() int {
	return schema.minLength
}

/*Extract scan read 1 within the starting-offset window. The first
offset at which every spacer matches exactly wins and the search stops
there. Barcode segments are sliced without validation; the UMI is
sliced with whatever is available, its length is checked downstream.
Returns false when no offset within 0..maxOffset anchors all spacers */
func (schema *ConstructSchema) Extract(seq string, maxOffset int) (Extraction, bool) {

	var extraction Extraction

	for start := 0; start <= maxOffset; start++ {
		if start+schema.minLength > len(seq) {
			break
		}

		if schema.extractAt(seq, start, &extraction) {
			extraction.Offset = start
			return extraction, true
		}
	}

	return extraction, false
}

func (schema *ConstructSchema) extractAt(seq string, start int, extraction *Extraction) bool {
	pos := start
	barcodeIdx := 0

	for _, segment := range schema.Segments {
		switch segment.Kind {
		case segmentSpacer:
			if seq[pos:pos+segment.Length] != segment.Sequence {
				return false
			}
			pos += segment.Length

		case segmentBarcode:
			extraction.Barcodes[barcodeIdx] = seq[pos : pos+segment.Length]
			barcodeIdx++
			pos += segment.Length

		case segmentUMI:
			end := pos + segment.Length
			if end > len(seq) {
				end = len(seq)
			}
			extraction.UMI = seq[pos:end]
			pos = end
		}
	}

	extraction.End = pos

	return true
}

/*resolveConstruct validate the four raw barcode segments in construct
order against their whitelists. The first NotFound or Ambiguous segment
short-circuits the evaluation and determines the rejection stage. The
UMI is never corrected: it is rejected when shorter than the configured
length or containing an undetermined base. linkers interleaves the
spacer sequences into the emitted barcode */
func resolveConstruct(extraction *Extraction, indexes [nbBarcodes]*BarcodeIndex,
	schema *ConstructSchema, linkers bool) MatchOutcome {

	outcome := MatchOutcome{}

	for i := 0; i < nbBarcodes; i++ {
		canonical, status := indexes[i].Lookup(extraction.Barcodes[i])

		if status != StatusFound {
			outcome.Stage = stageBarcode1 + i
			return outcome
		}

		outcome.Segments[i] = canonical
	}

	if len(extraction.UMI) != schema.UmiLength ||
		strings.ContainsRune(extraction.UMI, 'N') {
		outcome.Stage = stageUMI
		return outcome
	}

	var buffer strings.Builder
	barcodeIdx := 0

	for _, segment := range schema.Segments {
		switch segment.Kind {
		case segmentBarcode:
			buffer.WriteString(outcome.Segments[barcodeIdx])
			barcodeIdx++
		case segmentSpacer:
			if linkers {
				buffer.WriteString(segment.Sequence)
			}
		}
	}

	outcome.Accepted = true
	outcome.Barcode = buffer.String()
	outcome.UMI = extraction.UMI

	return outcome
}
