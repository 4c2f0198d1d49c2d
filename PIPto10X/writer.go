package main

import (
	"bytes"
	"io"
	"os"
	"path"
	"runtime"

	gzip "github.com/klauspost/pgzip"
	utils "gitlab.com/PIPtools/PIPto10X/PIPto10XUtils"
)

/*compressionBlockSize bytes of formatted records handed to one
compression worker. Each block becomes an independent deflate stream;
pgzip reassembles the compressed blocks in sequence order so the
output stream keeps the input record order */
const compressionBlockSize = 1 << 20

/*writerFlushSize record buffer size before handing a block downstream */
const writerFlushSize = compressionBlockSize

/*FastqWriter order-preserving compressed FASTQ writer. Records are
formatted into a reused buffer on the single matching path and flushed
in fixed-size blocks to a pool of compression workers */
type FastqWriter struct {
	writer io.WriteCloser
	file   *os.File
	buffer bytes.Buffer
}

/*newFastqWriter open a FASTQ writer for fname. nbThreads sets the
compression worker count for .gz files */
func newFastqWriter(fname string, nbThreads int) *FastqWriter {

	fastqWriter := &FastqWriter{}

	switch path.Ext(fname) {
	case ".gz":
		file, err := os.Create(fname)
		utils.Check(err)

		gzipWriter := gzip.NewWriter(file)
		err = gzipWriter.SetConcurrency(compressionBlockSize, nbThreads)
		utils.Check(err)

		fastqWriter.file = file
		fastqWriter.writer = gzipWriter
	default:
		fastqWriter.writer = utils.ReturnWriter(fname)
	}

	return fastqWriter
}

/*WriteRecord append one FASTQ record. The strand line is always "+" */
func (fastqWriter *FastqWriter) WriteRecord(id string, seq string, qual string) {
	fastqWriter.buffer.WriteRune('@')
	fastqWriter.buffer.WriteString(id)
	fastqWriter.buffer.WriteRune('\n')
	fastqWriter.buffer.WriteString(seq)
	fastqWriter.buffer.WriteString("\n+\n")
	fastqWriter.buffer.WriteString(qual)
	fastqWriter.buffer.WriteRune('\n')

	if fastqWriter.buffer.Len() >= writerFlushSize {
		fastqWriter.flush()
	}
}

func (fastqWriter *FastqWriter) flush() {
	_, err := fastqWriter.writer.Write(fastqWriter.buffer.Bytes())
	utils.Check(err)
	fastqWriter.buffer.Reset()
}

/*Close flush the pending records and block until all in-flight
compression completed */
func (fastqWriter *FastqWriter) Close() {
	if fastqWriter.buffer.Len() > 0 {
		fastqWriter.flush()
	}

	utils.CloseFile(fastqWriter.writer)

	if fastqWriter.file != nil {
		utils.CloseFile(fastqWriter.file)
	}
}

/*splitThreads split the compression thread budget between the R1 and
R2 writers. 0 means one thread per CPU; an odd budget gives the extra
thread to R2 */
func splitThreads(nbThreads int) (int, int) {
	if nbThreads == 0 {
		nbThreads = runtime.NumCPU()
	}

	if nbThreads == 1 {
		return 1, 1
	}

	return nbThreads / 2, nbThreads/2 + nbThreads%2
}
