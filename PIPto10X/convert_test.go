package main

import (
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	utils "gitlab.com/PIPtools/PIPto10X/PIPto10XUtils"
)

func writeFastq(t *testing.T, fname string, reads []string) {
	t.Helper()

	writer := utils.ReturnWriter(fname)
	defer utils.CloseFile(writer)

	for i, read := range reads {
		record := "@read_" + string(rune('0'+i)) + "\n" + read + "\n+\n" +
			strings.Repeat("I", len(read)) + "\n"

		_, err := writer.Write([]byte(record))
		if err != nil {
			t.Fatal(err)
		}
	}
}

func readFastq(t *testing.T, fname string) []string {
	t.Helper()

	scanner, file := utils.ReturnReader(fname)
	defer utils.CloseFile(file)

	lines := []string{}

	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	return lines
}

func TestConvertReads(t *testing.T) {
	indexes := buildTestIndexes(t, true)
	schema := buildSchema(indexes, testSpacers, 12)

	umi := "ACGTACGTACGT"

	readsR1 := []string{
		// perfect construct, offset 2
		buildTestRead("GT", "AGAAACCA", "TCTGTG", "AAAGTG", "CTGGGTAT", umi),
		// single substitution in bc2, correctable
		buildTestRead("", "AGAAACCA", "TCTGTC", "AAAGTG", "CTGGGTAT", umi),
		// broken spacer placement, construct mismatch
		strings.Repeat("C", 90),
		// UMI with N
		buildTestRead("", "TCTTTGAC", "GTAATC", "CTGAAG", "AAACTACA", "ACGTACGTACGN"),
	}

	readsR2 := []string{
		strings.Repeat("G", 50),
		strings.Repeat("C", 50),
		strings.Repeat("T", 50),
		strings.Repeat("A", 50),
	}

	dir := t.TempDir()

	fastqR1 := path.Join(dir, "R1.fastq.gz")
	fastqR2 := path.Join(dir, "R2.fastq.gz")
	outputR1 := path.Join(dir, "out_R1.fq.gz")
	outputR2 := path.Join(dir, "out_R2.fq.gz")

	writeFastq(t, fastqR1, readsR1)
	writeFastq(t, fastqR2, readsR2)

	writerR1 := newFastqWriter(outputR1, 2)
	writerR2 := newFastqWriter(outputR2, 2)

	stats := convertReads(fastqR1, fastqR2, writerR1, writerR2,
		schema, indexes, 5, false)

	writerR1.Close()
	writerR2.Close()

	stats.Finalize()

	assert.Equal(t, 4, stats.TotalReads)
	assert.Equal(t, 2, stats.PassingReads)
	assert.Equal(t, 1, stats.NumFiltered1)
	assert.Equal(t, 1, stats.NumFilteredUmi)
	assert.Equal(t, 0.5, stats.FractionPassing)

	canonical := "AGAAACCATCTGTGAAAGTGCTGGGTAT"

	linesR1 := readFastq(t, outputR1)
	assert.Len(t, linesR1, 8)

	// output order follows input order
	assert.Equal(t, "@read_0", linesR1[0])
	assert.Equal(t, canonical+umi, linesR1[1])
	assert.Equal(t, "+", linesR1[2])
	assert.Len(t, linesR1[3], len(canonical+umi))
	assert.Equal(t, "@read_1", linesR1[4])
	assert.Equal(t, canonical+umi, linesR1[5])

	linesR2 := readFastq(t, outputR2)
	assert.Len(t, linesR2, 8)
	assert.Equal(t, "@read_0", linesR2[0])
	assert.Equal(t, readsR2[0], linesR2[1])
	assert.Equal(t, "@read_1", linesR2[4])
	assert.Equal(t, readsR2[1], linesR2[5])

	assert.Equal(t, []string{canonical}, stats.Whitelist())
}

func TestConvertReadsExactMode(t *testing.T) {
	indexes := buildTestIndexes(t, false)
	schema := buildSchema(indexes, testSpacers, 12)

	umi := "ACGTACGTACGT"

	readsR1 := []string{
		buildTestRead("", "AGAAACCA", "TCTGTG", "AAAGTG", "CTGGGTAT", umi),
		// substitution in bc2 no longer correctable
		buildTestRead("", "AGAAACCA", "TCTGTC", "AAAGTG", "CTGGGTAT", umi),
	}

	readsR2 := []string{
		strings.Repeat("G", 50),
		strings.Repeat("C", 50),
	}

	dir := t.TempDir()

	fastqR1 := path.Join(dir, "R1.fastq.gz")
	fastqR2 := path.Join(dir, "R2.fastq.gz")
	outputR1 := path.Join(dir, "out_R1.fq.gz")
	outputR2 := path.Join(dir, "out_R2.fq.gz")

	writeFastq(t, fastqR1, readsR1)
	writeFastq(t, fastqR2, readsR2)

	writerR1 := newFastqWriter(outputR1, 1)
	writerR2 := newFastqWriter(outputR2, 1)

	stats := convertReads(fastqR1, fastqR2, writerR1, writerR2,
		schema, indexes, 5, false)

	writerR1.Close()
	writerR2.Close()

	stats.Finalize()

	assert.Equal(t, 2, stats.TotalReads)
	assert.Equal(t, 1, stats.PassingReads)
	assert.Equal(t, 1, stats.NumFiltered2)
}
