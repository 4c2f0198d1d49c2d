/* Convert PIPseq single-cell FASTQ files to a 10X-style layout:
locate the four split barcode segments and the UMI in read 1, correct
the segments against their whitelists with one-mismatch tolerance and
emit reformatted R1 (barcode+UMI) / unmodified R2 for passing reads */

package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	utils "gitlab.com/PIPtools/PIPto10X/PIPto10XUtils"
)

/*PRINTVERSION ... */
var PRINTVERSION bool

/*FASTQ_R1 ... */
var FASTQ_R1 string

/*FASTQ_R2 ... */
var FASTQ_R2 string

/*CONFIGFILE ... */
var CONFIGFILE string

/*OUTPUTPREFIX ... */
var OUTPUTPREFIX string

/*NB_THREADS ... */
var NB_THREADS int

/*OFFSET ... */
var OFFSET int

/*UMILENGTH ... */
var UMILENGTH int

/*EXACT ... */
var EXACT bool

/*LINKERS ... */
var LINKERS bool

/*QUIET ... */
var QUIET bool

func main() {

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `
################ USAGE #################################
# Convert PIPseq fastq files to 10X format
PIPto10X -fastq_R1 <fastq paired read 1 file> \
         -fastq_R2 <fastq paired read 2 file> \
         -config <yaml chemistry config> \
# Optional Basic
         -output_prefix <string> \
         -nbThreads <int> \
         -offset <int> \
         -umi_length <int> \
         -exact \
         -linkers \
         -quiet

Documentation:

:-config:
yaml file describing the chemistry:

barcodes:
  bc1: <whitelist file barcode 1>
  bc2: <whitelist file barcode 2>
  bc3: <whitelist file barcode 3>
  bc4: <whitelist file barcode 4>
spacers:
  spacer1: <sequence>
  spacer2: <sequence>
  spacer3: <sequence>
parameters:
  umi_len: <int, optional, overrides -umi_length>

Output files: <prefix>_R1.fq.gz, <prefix>_R2.fq.gz,
<prefix>_whitelist.txt, <prefix>_log.yaml and barcode/UMI stats tsv
########################################################
`)
		flag.PrintDefaults()
	}

	flag.StringVar(&FASTQ_R1, "fastq_R1", "", "fastq read file paired read 1")
	flag.StringVar(&FASTQ_R2, "fastq_R2", "", "fastq read file paired read 2")
	flag.StringVar(&CONFIGFILE, "config", "", "yaml config file describing whitelists and spacers")
	flag.StringVar(&OUTPUTPREFIX, "output_prefix", "pipto10x", "prefix for the output file names")
	flag.IntVar(&NB_THREADS, "nbThreads", 1, "number of threads used for gzip compression (0 = all CPUs)")
	flag.IntVar(&OFFSET, "offset", 5, "maximum number of nucleotides before the construct begins in read 1")
	flag.IntVar(&UMILENGTH, "umi_length", 12, "length of the UMI (overriden by the config file if present)")
	flag.BoolVar(&EXACT, "exact", false, "use exact barcode matching instead of one mismatch")
	flag.BoolVar(&LINKERS, "linkers", false, "include the spacer sequences in the output barcodes")
	flag.BoolVar(&QUIET, "quiet", false, "do not write the report to stderr")
	flag.BoolVar(&PRINTVERSION, "version", false, "print the current version and return")
	flag.Parse()

	if PRINTVERSION {
		fmt.Printf("PIPto10X version: %s\n", VERSION)
		return
	}

	if FASTQ_R1 == "" || FASTQ_R2 == "" || CONFIGFILE == "" {
		flag.Usage()
		log.Fatal("-fastq_R1, -fastq_R2 and -config are required!")
	}

	fmt.Printf("#### current PIPto10X version: %s\n", VERSION)
	fmt.Printf("fastq file read file 1 analyzed: %s\n", FASTQ_R1)
	fmt.Printf("fastq file read file 2 analyzed: %s\n", FASTQ_R2)

	config := loadConfig(CONFIGFILE)

	umiLen := UMILENGTH

	if config.UmiLen > 0 {
		umiLen = config.UmiLen
	}

	indexes := loadBarcodeIndexes(config.BarcodeFiles, !EXACT)
	schema := buildSchema(indexes, config.Spacers, umiLen)

	outputR1 := fmt.Sprintf("%s_R1.fq.gz", OUTPUTPREFIX)
	outputR2 := fmt.Sprintf("%s_R2.fq.gz", OUTPUTPREFIX)
	whitelistFile := fmt.Sprintf("%s_whitelist.txt", OUTPUTPREFIX)

	threadsR1, threadsR2 := splitThreads(NB_THREADS)

	writerR1 := newFastqWriter(outputR1, threadsR1)
	writerR2 := newFastqWriter(outputR2, threadsR2)

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	tStart := time.Now()

	stats := convertReads(FASTQ_R1, FASTQ_R2, writerR1, writerR2,
		schema, indexes, OFFSET, LINKERS)

	writerR1.Close()
	writerR2.Close()

	stats.Finalize()
	stats.WriteWhitelist(whitelistFile)
	stats.WriteSegmentCounts(fmt.Sprintf("%s_barcode_position_counts.tsv", OUTPUTPREFIX))
	stats.WriteBarcodeUmiStats(fmt.Sprintf("%s_barcode_umi_stats.tsv", OUTPUTPREFIX))
	stats.WriteUmiComposition(fmt.Sprintf("%s_umi_composition_stats.tsv", OUTPUTPREFIX))

	tDiff := time.Since(tStart)

	runLog := RunLog{
		Parameters: RunParameters{
			Offset:        OFFSET,
			UmiLen:        umiLen,
			ExactMatching: EXACT,
			WriteLinkers:  LINKERS,
			Version:       VERSION,
		},
		FileIO: RunFileIO{
			ReadpathR1:    FASTQ_R1,
			ReadpathR2:    FASTQ_R2,
			WritepathR1:   outputR1,
			WritepathR2:   outputR2,
			WhitelistPath: whitelistFile,
		},
		Statistics: stats.Snapshot(),
		Timing: RunTiming{
			Timestamp:   timestamp,
			ElapsedTime: tDiff.Seconds(),
		},
	}

	runLog.WriteYaml(fmt.Sprintf("%s_log.yaml", OUTPUTPREFIX))

	if !QUIET {
		runLog.Stderr()
	}

	fmt.Printf("Processed %d reads, %d passed filters (%.4f%%)\n",
		stats.TotalReads, stats.PassingReads, stats.FractionPassing*100.0)
	fmt.Printf("conversion finished in %f s\n", tDiff.Seconds())
}

/*convertReads pull the paired reads in lockstep, parse and match read
1, stream passing pairs to the writers. Parsing and matching stay on
this single sequential path so per-read outcomes, statistics and output
order follow the input order; only compression runs on worker threads */
func convertReads(fastqR1 string, fastqR2 string,
	writerR1 *FastqWriter, writerR2 *FastqWriter,
	schema *ConstructSchema, indexes [nbBarcodes]*BarcodeIndex,
	maxOffset int, linkers bool) *RunStats {

	scannerR1, fileR1 := utils.ReturnReader(fastqR1)
	scannerR2, fileR2 := utils.ReturnReader(fastqR2)

	defer utils.CloseFile(fileR1)
	defer utils.CloseFile(fileR2)

	stats := newRunStats(schema.UmiLength)

	var idR1, seqR1, qualR1 string
	var idR2, seqR2, qualR2 string

	count := 0

	for scannerR1.Scan() {
		if !scannerR2.Scan() {
			log.Fatal(fmt.Sprintf("!!!! Error: fastq file %s ends before %s at read nb %d!",
				fastqR2, fastqR1, count))
		}

		idR1 = scannerR1.Text()
		idR2 = scannerR2.Text()

		if len(idR1) == 0 || idR1[0] != '@' || len(idR2) == 0 || idR2[0] != '@' {
			log.Fatal(fmt.Sprintf("!!!! Error: reads R1 %s and R2 %s not sync at read nb %d!",
				idR1, idR2, count))
		}

		seqR1 = nextLine(scannerR1, fastqR1, count)
		seqR2 = nextLine(scannerR2, fastqR2, count)

		nextLine(scannerR1, fastqR1, count)
		nextLine(scannerR2, fastqR2, count)

		qualR1 = nextLine(scannerR1, fastqR1, count)
		qualR2 = nextLine(scannerR2, fastqR2, count)

		stats.CountRead()

		if count%1000000 == 0 || (count < 1000 && count%100 == 0) {
			printProcessed(count)
		}

		count++

		extraction, ok := schema.Extract(seqR1, maxOffset)

		if !ok {
			stats.CountReject(stageBarcode1)
			continue
		}

		outcome := resolveConstruct(&extraction, indexes, schema, linkers)

		if !outcome.Accepted {
			stats.CountReject(outcome.Stage)
			continue
		}

		stats.CountAccepted(&outcome)

		newSeq := outcome.Barcode + outcome.UMI
		newQual := qualR1[extraction.End-len(newSeq) : extraction.End]

		writerR1.WriteRecord(idR1[1:], newSeq, newQual)
		writerR2.WriteRecord(idR2[1:], seqR2, qualR2)
	}

	if scannerR2.Scan() {
		log.Fatal(fmt.Sprintf("!!!! Error: fastq file %s ends before %s at read nb %d!",
			fastqR1, fastqR2, count))
	}

	return stats
}

/*nextLine ... */
func nextLine(scanner *bufio.Scanner, fname string, count int) string {
	if !scanner.Scan() {
		log.Fatal(fmt.Sprintf("!!!! Error: truncated fastq record in %s at read nb %d!",
			fname, count))
	}

	return scanner.Text()
}

/*printProcessed ... */
func printProcessed(count int) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	usedGb := float64(memStats.Alloc) / 1024.0 / 1024.0 / 1024.0

	fmt.Printf("Processed %d reads, used memory: %.2fGb\n", count, usedGb)
}
