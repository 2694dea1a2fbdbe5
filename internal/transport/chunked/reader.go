package chunked

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/textproto"
)

var (
	ErrMalformed = errors.New("malformed chunked encoding")
	ErrTooLarge  = errors.New("http chunk length too large")
)

// NewChunkedReader decodes a chunked body. chunk extensions are ignored and
// the trailer section is consumed; it is available from Trailer once the
// reader returned io.EOF.
func NewChunkedReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{br: br}
}

// Reader only exposes Read, so io.Copy can't bypass the decoding through
// the WriteTo of the underlying bufio.Reader.
type Reader struct {
	br        *bufio.Reader
	remaining int64
	inChunk   bool
	done      bool
	trailer   textproto.MIMEHeader
}

func (c *Reader) Trailer() textproto.MIMEHeader { return c.trailer }

func (c *Reader) readLine() ([]byte, error) {
	line, err := c.br.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		return nil, ErrTooLarge
	}
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

func (c *Reader) readChunkHeader() (size int64, err error) {
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return 0, ErrMalformed
	}
	if len(line) > 15 {
		return 0, ErrTooLarge
	}
	for _, b := range line {
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, errors.New("invalid byte in chunk length")
		}
		size <<= 4
		size |= int64(b)
	}
	return
}

func (c *Reader) readTrailer() error {
	tp := textproto.NewReader(c.br)
	h, err := tp.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return err
	}
	if len(h) > 0 {
		c.trailer = h
	}
	return nil
}

func (c *Reader) Read(p []byte) (n int, err error) {
	if c.done {
		return 0, io.EOF
	}
	if !c.inChunk {
		size, err := c.readChunkHeader()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			c.done = true
			if err := c.readTrailer(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		c.remaining, c.inChunk = size, true
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err = c.br.Read(p)
	c.remaining -= int64(n)
	if err == io.EOF {
		return n, io.ErrUnexpectedEOF
	}
	if err != nil {
		return n, err
	}
	if c.remaining == 0 {
		dr, _ := c.br.ReadByte()
		dn, err := c.br.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return n, err
		}
		if dr != '\r' || dn != '\n' {
			return n, ErrMalformed
		}
		c.inChunk = false
	}
	return n, nil
}
