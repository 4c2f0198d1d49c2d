/* Shared IO helpers for the PIPto10X tools */

package pipto10xutils

import (
	"bufio"
	originalbzip2 "compress/bzip2"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/dsnet/compress/bzip2"
	gzip "github.com/klauspost/pgzip"
)

/*BUFFERSIZE size of the buffers used for compressed streams */
const BUFFERSIZE = 1000000

/*Filename type used to check if files exists */
type Filename string

/*Set ... */
func (i *Filename) Set(filename string) error {
	if _, err := os.Stat(filename); err != nil {
		panic(fmt.Sprintf("!!!!Error %s with file: %s\n", err, filename))
	}

	*i = Filename(filename)
	return nil
}

func (i *Filename) String() string {
	return string(*i)
}

/*ReturnReader Return reader for file */
func (i *Filename) ReturnReader() (*bufio.Scanner, *os.File) {
	return ReturnReader(string(*i))
}

type closer interface {
	Close() error
}

/*ArrayFlags repeatable string flag */
type ArrayFlags []string

/*String ... */
func (i *ArrayFlags) String() string {
	var str string
	for _, s := range *i {
		str = str + "\t" + s
	}

	return str
}

/*Set ... */
func (i *ArrayFlags) Set(value string) error {
	*i = append(*i, value)
	return nil
}

/*Check ... */
func Check(err error) {
	if err != nil {
		panic(err)
	}
}

/*CloseFile close file checking error */
func CloseFile(file closer) {
	err := file.Close()
	Check(err)
}

/*ReturnWriter return a writer for a plain, gzipped or bzipped file
depending on the file extension */
func ReturnWriter(fname string) io.WriteCloser {

	ext := path.Ext(fname)
	var writer io.WriteCloser
	var err error

	switch ext {
	case ".bz2":
		writer = ReturnWriterForBzipfile(fname)

	case ".gz":
		writer = ReturnWriterForGzipFile(fname, 0)
	default:
		writer, err = os.Create(fname)
		Check(err)
	}

	return writer
}

/*ReturnWriterForGzipFile parallel gzip writer. nbThreads == 0 uses
one goroutine per CPU */
func ReturnWriterForGzipFile(fname string, nbThreads int) io.WriteCloser {
	outputFile, err := os.Create(fname)
	Check(err)
	gzipFile := gzip.NewWriter(outputFile)

	if nbThreads > 0 {
		err = gzipFile.SetConcurrency(BUFFERSIZE, nbThreads)
		Check(err)
	}

	return gzipFile
}

/*ReturnWriterForBzipfile ... */
func ReturnWriterForBzipfile(fname string) *bzip2.Writer {
	outputFile, err := os.Create(fname)
	Check(err)
	bzipFile, err := bzip2.NewWriter(outputFile, new(bzip2.WriterConfig))
	Check(err)

	return bzipFile
}

/*ReturnReader return a scanner for a plain, gzipped or bzipped file
depending on the file extension */
func ReturnReader(fname string) (*bufio.Scanner, *os.File) {
	ext := path.Ext(fname)
	var scanner *bufio.Scanner
	var fileOpen *os.File
	var err error

	switch ext {
	case ".bz2":
		scanner, fileOpen = ReturnReaderForBzipfile(fname)

	case ".gz":
		scanner, fileOpen = ReturnReaderForGzipfile(fname)
	default:
		fileOpen, err = os.Open(fname)
		Check(err)
		scanner = bufio.NewScanner(fileOpen)
	}

	return scanner, fileOpen
}

/*ReturnReaderForGzipfile ... */
func ReturnReaderForGzipfile(fname string) (*bufio.Scanner, *os.File) {
	fileOpen, err := os.OpenFile(fname, 0, 0)
	Check(err)

	readerOs := bufio.NewReader(fileOpen)
	readerGzip, err := gzip.NewReader(readerOs)
	Check(err)
	scanner := bufio.NewScanner(readerGzip)

	return scanner, fileOpen
}

/*ReturnReaderForBzipfile ... */
func ReturnReaderForBzipfile(fname string) (*bufio.Scanner, *os.File) {
	fileOpen, err := os.OpenFile(fname, 0, 0)
	Check(err)

	readerOs := bufio.NewReader(fileOpen)
	readerBzip := originalbzip2.NewReader(readerOs)
	scanner := bufio.NewScanner(readerBzip)

	return scanner, fileOpen
}

/*CountNbLines count nb lines in a file */
func CountNbLines(filename string) int {
	reader, file := ReturnReader(filename)
	defer CloseFile(file)

	nbLines := 0

	for reader.Scan() {
		nbLines++
	}

	return nbLines
}
