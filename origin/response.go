package origin

import (
	"net/http"
	"strconv"
	"time"

	gnet "github.com/panjf2000/gnet/v2"
	"github.com/valyala/bytebufferpool"
)

// writeResponse serializes resp into a pooled buffer and writes it to the
// connection in one call. Content-Length framing is always used.
func (s *Server) writeResponse(c gnet.Conn, resp Response) error {
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}

	buf := s.bufPool.Get()
	defer s.bufPool.Put(buf)

	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(status))
	buf.WriteByte(' ')
	buf.WriteString(http.StatusText(status))
	buf.WriteString(crlf)

	writeHeaderLine(buf, "Server", s.serverHeader)
	writeHeaderLine(buf, "Date", time.Now().UTC().Format(http.TimeFormat))
	if resp.ContentType != "" {
		writeHeaderLine(buf, "Content-Type", resp.ContentType)
	}
	writeHeaderLine(buf, "Content-Length", strconv.Itoa(len(resp.Body)))
	for k, v := range resp.Extra {
		writeHeaderLine(buf, k, v)
	}
	buf.WriteString(crlf)
	buf.Write(resp.Body)

	_, err := c.Write(buf.Bytes())
	return err
}

func writeHeaderLine(buf *bytebufferpool.ByteBuffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString(crlf)
}
