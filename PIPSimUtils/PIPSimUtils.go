/* Suite of functions dedicated to generate simulated PIPseq fastq data */

package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/valyala/fastrand"
	utils "gitlab.com/PIPtools/PIPto10X/PIPto10XUtils"
)

/*WHITELISTFILES whitelist files, one per barcode segment */
var WHITELISTFILES utils.ArrayFlags

/*SPACERS spacer sequences between the barcode segments */
var SPACERS utils.ArrayFlags

/*FILENAMEOUT output file tag */
var FILENAMEOUT string

/*READNB number of read pairs to generate */
var READNB int

/*UMILENGTH length of the generated UMI */
var UMILENGTH int

/*READLENGTH length of the generated reads */
var READLENGTH int

/*MUTATIONRATE per-segment probability of a single substitution */
var MUTATIONRATE float64

/*MAXOFFSET maximum random prefix length before the construct */
var MAXOFFSET int

/*SEED seed used for random processes */
var SEED int

/*SIMULATE launch the simulation */
var SIMULATE bool

var bases = []byte{'A', 'C', 'G', 'T'}

func main() {

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `
#################### MODULE TO CREATE SIMULATED PIPSEQ FASTQ FILES ########################

USAGE: PIPSimUtils -simulate -whitelist <file> -whitelist <file> -whitelist <file> -whitelist <file> \
                   -spacer <string> -spacer <string> -spacer <string> \
                   (-nb <int> -umi_length <int> -mutation_rate <float> -max_offset <int> -out <string>)

creates <out>_R1.fastq.gz and <out>_R2.fastq.gz

`)
		flag.PrintDefaults()
	}

	flag.Var(&WHITELISTFILES, "whitelist", "whitelist file (repeated, one per barcode segment)")
	flag.Var(&SPACERS, "spacer", "spacer sequence (repeated, one per inter-barcode spacer)")
	flag.StringVar(&FILENAMEOUT, "out", "simulated", "name/tag the output file(s)")
	flag.IntVar(&READNB, "nb", 10000, "number of read pairs to generate")
	flag.IntVar(&UMILENGTH, "umi_length", 12, "length of the generated UMI")
	flag.IntVar(&READLENGTH, "length", 90, "length of the generated reads")
	flag.IntVar(&MAXOFFSET, "max_offset", 0, "maximum random prefix length before the construct")
	flag.IntVar(&SEED, "seed", 2019, "seed used for random processes")
	flag.Float64Var(&MUTATIONRATE, "mutation_rate", 0.1, "per-segment probability of a single substitution")
	flag.BoolVar(&SIMULATE, "simulate", false, "simulate PIPseq fastq files")
	flag.Parse()

	switch {
	case !SIMULATE:
		flag.Usage()
		return
	case len(WHITELISTFILES) == 0:
		log.Fatal("Error at least one whitelist file should be given as input")
	case len(SPACERS) != len(WHITELISTFILES)-1:
		log.Fatal(fmt.Sprintf("Error %d whitelists require %d spacers (found %d)",
			len(WHITELISTFILES), len(WHITELISTFILES)-1, len(SPACERS)))
	}

	rand.Seed(int64(SEED))

	simulateFastqFiles()
}

func simulateFastqFiles() {
	tStart := time.Now()

	whitelists := make([][]string, len(WHITELISTFILES))

	for i, fname := range WHITELISTFILES {
		whitelists[i] = loadWhitelist(fname)
		fmt.Printf("#### whitelist %d: %d barcodes loaded from %s\n",
			i+1, len(whitelists[i]), fname)
	}

	outputR1 := fmt.Sprintf("%s_R1.fastq.gz", FILENAMEOUT)
	outputR2 := fmt.Sprintf("%s_R2.fastq.gz", FILENAMEOUT)

	writerR1 := utils.ReturnWriter(outputR1)
	writerR2 := utils.ReturnWriter(outputR2)

	defer utils.CloseFile(writerR1)
	defer utils.CloseFile(writerR2)

	var bufferR1 bytes.Buffer
	var bufferR2 bytes.Buffer

	for i := 0; i < READNB; i++ {
		seqR1 := simulateReadR1(whitelists)
		seqR2 := randomSequence(READLENGTH)

		writeRecord(&bufferR1, i, seqR1)
		writeRecord(&bufferR2, i, seqR2)

		if bufferR1.Len() > utils.BUFFERSIZE {
			flushBuffer(&bufferR1, writerR1)
			flushBuffer(&bufferR2, writerR2)
		}
	}

	flushBuffer(&bufferR1, writerR1)
	flushBuffer(&bufferR2, writerR2)

	tDiff := time.Since(tStart)
	fmt.Printf("simulating %d read pairs done in time: %f s \n", READNB, tDiff.Seconds())
	fmt.Printf("file: %s created!\n file: %s created!\n", outputR1, outputR2)
}

func loadWhitelist(fname string) []string {
	scanner, file := utils.ReturnReader(fname)
	defer utils.CloseFile(file)

	whitelist := []string{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line != "" {
			whitelist = append(whitelist, line)
		}
	}

	if len(whitelist) == 0 {
		log.Fatal(fmt.Sprintf("Error empty whitelist file: %s", fname))
	}

	return whitelist
}

/*simulateReadR1 random prefix + barcodes interleaved with spacers +
UMI + poly-A tail, with at most one substitution per barcode segment */
func simulateReadR1(whitelists [][]string) string {
	var buffer bytes.Buffer

	if MAXOFFSET > 0 {
		buffer.WriteString(randomSequence(int(fastrand.Uint32n(uint32(MAXOFFSET + 1)))))
	}

	for i, whitelist := range whitelists {
		barcode := whitelist[rand.Intn(len(whitelist))]

		if randomFloat() < MUTATIONRATE {
			barcode = mutate(barcode)
		}

		buffer.WriteString(barcode)

		if i < len(SPACERS) {
			buffer.WriteString(SPACERS[i])
		}
	}

	buffer.WriteString(randomSequence(UMILENGTH))

	for buffer.Len() < READLENGTH {
		buffer.WriteRune('A')
	}

	return buffer.String()[:READLENGTH]
}

func writeRecord(buffer *bytes.Buffer, readNb int, seq string) {
	buffer.WriteString(fmt.Sprintf("@simulated_read_%d\n", readNb))
	buffer.WriteString(seq)
	buffer.WriteString("\n+\n")
	buffer.WriteString(strings.Repeat("I", len(seq)))
	buffer.WriteRune('\n')
}

func flushBuffer(buffer *bytes.Buffer, writer io.Writer) {
	_, err := writer.Write(buffer.Bytes())
	utils.Check(err)
	buffer.Reset()
}

func randomSequence(length int) string {
	var buffer bytes.Buffer

	for i := 0; i < length; i++ {
		buffer.WriteByte(bases[fastrand.Uint32n(4)])
	}

	return buffer.String()
}

func mutate(barcode string) string {
	pos := rand.Intn(len(barcode))
	base := bases[fastrand.Uint32n(4)]

	return barcode[:pos] + string(base) + barcode[pos+1:]
}

func randomFloat() float64 {
	return float64(fastrand.Uint32n(1000000)) / 1000000.0
}
