package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/jinzhu/copier"
	utils "gitlab.com/PIPtools/PIPto10X/PIPto10XUtils"
	"gopkg.in/yaml.v3"
)

/*RunStats counters for one conversion run. Mutated only by the single
sequential matching path, so no locking is needed on the hot path. The
exported fields form the statistics section of the yaml run report */
type RunStats struct {
	TotalReads      int     `yaml:"total_reads"`
	PassingReads    int     `yaml:"passing_reads"`
	FractionPassing float64 `yaml:"fraction_passing"`
	WhitelistSize   int     `yaml:"whitelist_size"`
	NumFiltered1    int     `yaml:"num_filtered_1"`
	NumFiltered2    int     `yaml:"num_filtered_2"`
	NumFiltered3    int     `yaml:"num_filtered_3"`
	NumFiltered4    int     `yaml:"num_filtered_4"`
	NumFilteredUmi  int     `yaml:"num_filtered_umi"`

	whitelist      map[string]bool
	whitelistOrder []string
	segmentCounts  [nbBarcodes]map[string]int
	umiCounts      map[string]map[string]int
	umiComposition [][5]int
}

/*newRunStats ... */
func newRunStats(umiLen int) *RunStats {
	stats := &RunStats{
		whitelist:      make(map[string]bool),
		umiCounts:      make(map[string]map[string]int),
		umiComposition: make([][5]int, umiLen),
	}

	for i := range stats.segmentCounts {
		stats.segmentCounts[i] = make(map[string]int)
	}

	return stats
}

/*CountRead one read pulled from the input streams */
func (stats *RunStats) CountRead() {
	stats.TotalReads++
}

/*CountReject attribute a rejected read to its stage counter */
func (stats *RunStats) CountReject(stage int) {
	switch stage {
	case stageBarcode1:
		stats.NumFiltered1++
	case stageBarcode2:
		stats.NumFiltered2++
	case stageBarcode3:
		stats.NumFiltered3++
	case stageBarcode4:
		stats.NumFiltered4++
	case stageUMI:
		stats.NumFilteredUmi++
	default:
		panic(fmt.Sprintf("unknown rejection stage: %d", stage))
	}
}

/*CountAccepted record one accepted read: passing counter, discovered
whitelist (first-seen order), per-position segment counts, per-cell UMI
counts and UMI base composition */
func (stats *RunStats) CountAccepted(outcome *MatchOutcome) {
	stats.PassingReads++

	if !stats.whitelist[outcome.Barcode] {
		stats.whitelist[outcome.Barcode] = true
		stats.whitelistOrder = append(stats.whitelistOrder, outcome.Barcode)
	}

	for i, segment := range outcome.Segments {
		stats.segmentCounts[i][segment]++
	}

	if _, isInside := stats.umiCounts[outcome.Barcode]; !isInside {
		stats.umiCounts[outcome.Barcode] = make(map[string]int)
	}

	stats.umiCounts[outcome.Barcode][outcome.UMI]++

	for i := 0; i < len(outcome.UMI) && i < len(stats.umiComposition); i++ {
		stats.umiComposition[i][baseRank(outcome.UMI[i])]++
	}
}

func baseRank(base byte) int {
	switch base {
	case 'A':
		return 0
	case 'C':
		return 1
	case 'G':
		return 2
	case 'T':
		return 3
	default:
		return 4
	}
}

/*Finalize compute the derived metrics once all reads were observed */
func (stats *RunStats) Finalize() {
	if stats.TotalReads > 0 {
		stats.FractionPassing = float64(stats.PassingReads) / float64(stats.TotalReads)
	}

	stats.WhitelistSize = len(stats.whitelist)
}

/*Snapshot read-only deep copy of the counters */
func (stats *RunStats) Snapshot() RunStats {
	snapshot := RunStats{}
	err := copier.Copy(&snapshot, stats)
	utils.Check(err)

	return snapshot
}

/*Whitelist discovered canonical barcodes in first-seen order */
func (stats *RunStats) Whitelist() []string {
	return stats.whitelistOrder
}

/*WriteWhitelist write the discovered barcodes, one per line */
func (stats *RunStats) WriteWhitelist(fname string) {
	writer := utils.ReturnWriter(fname)
	defer utils.CloseFile(writer)

	var buffer bytes.Buffer

	for _, barcode := range stats.whitelistOrder {
		buffer.WriteString(barcode)
		buffer.WriteRune('\n')

		_, err := writer.Write(buffer.Bytes())
		utils.Check(err)
		buffer.Reset()
	}
}

/*WriteSegmentCounts write per-position corrected segment usage counts */
func (stats *RunStats) WriteSegmentCounts(fname string) {
	writer := utils.ReturnWriter(fname)
	defer utils.CloseFile(writer)

	var buffer bytes.Buffer
	buffer.WriteString("position\tbarcode\tcount\n")

	for position, counts := range stats.segmentCounts {
		for _, segment := range sortedCountKeys(counts) {
			buffer.WriteString(strconv.Itoa(position))
			buffer.WriteRune('\t')
			buffer.WriteString(segment)
			buffer.WriteRune('\t')
			buffer.WriteString(strconv.Itoa(counts[segment]))
			buffer.WriteRune('\n')
		}
	}

	_, err := writer.Write(buffer.Bytes())
	utils.Check(err)
}

/*WriteBarcodeUmiStats write per-cell total, unique and median UMI
counts */
func (stats *RunStats) WriteBarcodeUmiStats(fname string) {
	writer := utils.ReturnWriter(fname)
	defer utils.CloseFile(writer)

	var buffer bytes.Buffer
	buffer.WriteString("barcode,total_umi,unique_umi,median_umi\n")

	for _, barcode := range stats.whitelistOrder {
		counts := make([]int, 0, len(stats.umiCounts[barcode]))
		total := 0

		for _, count := range stats.umiCounts[barcode] {
			counts = append(counts, count)
			total += count
		}

		sort.Ints(counts)

		buffer.WriteString(barcode)
		buffer.WriteRune(',')
		buffer.WriteString(strconv.Itoa(total))
		buffer.WriteRune(',')
		buffer.WriteString(strconv.Itoa(len(counts)))
		buffer.WriteRune(',')
		buffer.WriteString(strconv.Itoa(counts[len(counts)/2]))
		buffer.WriteRune('\n')
	}

	_, err := writer.Write(buffer.Bytes())
	utils.Check(err)
}

/*WriteUmiComposition write per-position UMI base composition counts */
func (stats *RunStats) WriteUmiComposition(fname string) {
	writer := utils.ReturnWriter(fname)
	defer utils.CloseFile(writer)

	var buffer bytes.Buffer
	buffer.WriteString("position,a,c,g,t,n\n")

	for position, bases := range stats.umiComposition {
		if bases == [5]int{} {
			continue
		}

		buffer.WriteString(strconv.Itoa(position))

		for _, count := range bases {
			buffer.WriteRune(',')
			buffer.WriteString(strconv.Itoa(count))
		}

		buffer.WriteRune('\n')
	}

	_, err := writer.Write(buffer.Bytes())
	utils.Check(err)
}

func sortedCountKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))

	for key := range counts {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

/*RunParameters parameters section of the run report */
type RunParameters struct {
	Offset        int    `yaml:"offset"`
	UmiLen        int    `yaml:"umi_len"`
	ExactMatching bool   `yaml:"exact_matching"`
	WriteLinkers  bool   `yaml:"write_linkers"`
	Version       string `yaml:"version"`
}

/*RunFileIO file paths section of the run report */
type RunFileIO struct {
	ReadpathR1    string `yaml:"readpath_r1"`
	ReadpathR2    string `yaml:"readpath_r2"`
	WritepathR1   string `yaml:"writepath_r1"`
	WritepathR2   string `yaml:"writepath_r2"`
	WhitelistPath string `yaml:"whitelist_path"`
}

/*RunTiming timing section of the run report */
type RunTiming struct {
	Timestamp   string  `yaml:"timestamp"`
	ElapsedTime float64 `yaml:"elapsed_time"`
}

/*RunLog full yaml run report */
type RunLog struct {
	Parameters RunParameters `yaml:"parameters"`
	FileIO     RunFileIO     `yaml:"file_io"`
	Statistics RunStats      `yaml:"statistics"`
	Timing     RunTiming     `yaml:"timing"`
}

/*WriteYaml write the run report to file */
func (runLog *RunLog) WriteYaml(fname string) {
	content, err := yaml.Marshal(runLog)
	utils.Check(err)

	err = os.WriteFile(fname, content, 0644)
	utils.Check(err)
}

/*Stderr echo the run report to stderr */
func (runLog *RunLog) Stderr() {
	content, err := yaml.Marshal(runLog)
	utils.Check(err)

	fmt.Fprint(os.Stderr, string(content))
}
