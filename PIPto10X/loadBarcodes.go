package main

import (
	"fmt"
	"log"
	"strings"

	utils "gitlab.com/PIPtools/PIPto10X/PIPto10XUtils"
)

/*LookupStatus outcome of a whitelist lookup */
type LookupStatus int

/*Lookup statuses */
const (
	StatusFound LookupStatus = iota
	StatusNotFound
	StatusAmbiguous
)

/*mutationAlphabet alphabet used to precompute one-mismatch variants.
N is included so that reads with a single undetermined base still
resolve to their whitelist entry */
var mutationAlphabet = []byte{'A', 'C', 'G', 'T', 'N'}

/*BarcodeIndex whitelist of one barcode segment.
exact maps each whitelist entry to itself. variants maps every sequence
at Hamming distance 1 from an entry to that entry; a variant reachable
from two distinct entries is kept with an empty reference and always
resolves to StatusAmbiguous */
type BarcodeIndex struct {
	length      int
	exact       map[string]bool
	variants    map[string]string
	oneMismatch bool
}

/*loadBarcodeIndexes load the four whitelist files in construct order */
func loadBarcodeIndexes(fnames [nbBarcodes]string, oneMismatch bool) [nbBarcodes]*BarcodeIndex {
	var indexes [nbBarcodes]*BarcodeIndex

	for i, fname := range fnames {
		indexes[i] = loadBarcodeIndex(fname, oneMismatch)
		fmt.Printf("#### whitelist %d: %d barcodes of length %d loaded from %s\n",
			i+1, indexes[i].Size(), indexes[i].Length(), fname)
	}

	return indexes
}

/*loadBarcodeIndex load one whitelist file and precompute the
one-mismatch variant map when requested */
func loadBarcodeIndex(fname string, oneMismatch bool) *BarcodeIndex {
	scanner, file := utils.ReturnReader(fname)
	defer utils.CloseFile(file)

	index := &BarcodeIndex{
		exact:       make(map[string]bool),
		oneMismatch: oneMismatch,
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		line = strings.ToUpper(line)

		switch {
		case index.length == 0:
			index.length = len(line)
		case len(line) != index.length:
			log.Fatal(fmt.Sprintf("#### barcode %s in whitelist %s has length %d"+
				" while previous barcodes have length %d!\n",
				line, fname, len(line), index.length))
		}

		index.exact[line] = true
	}

	if len(index.exact) == 0 {
		log.Fatal(fmt.Sprintf("#### empty whitelist file: %s\n", fname))
	}

	if oneMismatch {
		index.buildVariants()
	}

	return index
}

/*buildVariants insert every single-position substitution of every
whitelist entry. Variants colliding between two entries are marked
ambiguous permanently; variants identical to another whitelist entry
are skipped since the exact map takes priority at lookup time */
func (index *BarcodeIndex) buildVariants() {
	index.variants = make(map[string]string, len(index.exact)*index.length*len(mutationAlphabet))

	buffer := make([]byte, index.length)

	for entry := range index.exact {
		copy(buffer, entry)

		for pos := 0; pos < index.length; pos++ {
			original := buffer[pos]

			for _, base := range mutationAlphabet {
				if base == original {
					continue
				}

				buffer[pos] = base
				variant := string(buffer)

				if index.exact[variant] {
					continue
				}

				if previous, isInside := index.variants[variant]; isInside {
					if previous != entry {
						index.variants[variant] = ""
					}
				} else {
					index.variants[variant] = entry
				}
			}

			buffer[pos] = original
		}
	}
}

/*Lookup resolve a query against the whitelist. Exact membership always
wins; the variant map is consulted only on an exact miss */
func (index *BarcodeIndex) Lookup(query string) (string, LookupStatus) {
	if index.exact[query] {
		return query, StatusFound
	}

	if !index.oneMismatch {
		return "", StatusNotFound
	}

	entry, isInside := index.variants[query]

	switch {
	case !isInside:
		return "", StatusNotFound
	case entry == "":
		return "", StatusAmbiguous
	}

	return entry, StatusFound
}

/*Length barcode length of the whitelist */
func (index *BarcodeIndex) Length() int {
	return index.length
}

/*Size number of whitelist entries */
func (index *BarcodeIndex) Size() int {
	return len(index.exact)
}
