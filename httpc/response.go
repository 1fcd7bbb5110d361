package httpc

// Status is the closed set of response status codes the client recognizes.
// A code outside the set decodes as StatusBadRequest; callers must not assume
// the returned status matches the wire when the peer sends something exotic.
type Status int

const (
	StatusOK                  Status = 200
	StatusCreated             Status = 201
	StatusAccepted            Status = 202
	StatusNoContent           Status = 204
	StatusMovedPermanently    Status = 301
	StatusFound               Status = 302
	StatusNotModified         Status = 304
	StatusBadRequest          Status = 400
	StatusUnauthorized        Status = 401
	StatusForbidden           Status = 403
	StatusNotFound            Status = 404
	StatusMethodNotAllowed    Status = 405
	StatusConflict            Status = 409
	StatusTooManyRequests     Status = 429
	StatusInternalServerError Status = 500
	StatusBadGateway          Status = 502
	StatusServiceUnavailable  Status = 503
)

func statusFromCode(code uint64) Status {
	switch Status(code) {
	case StatusOK, StatusCreated, StatusAccepted, StatusNoContent,
		StatusMovedPermanently, StatusFound, StatusNotModified,
		StatusBadRequest, StatusUnauthorized, StatusForbidden,
		StatusNotFound, StatusMethodNotAllowed, StatusConflict,
		StatusTooManyRequests, StatusInternalServerError,
		StatusBadGateway, StatusServiceUnavailable:
		return Status(code)
	default:
		return StatusBadRequest
	}
}

// Response is a decoded HTTP response. Payload is a view into the receive
// buffer passed to Do: it is valid only while that buffer is alive and not
// overwritten by a later call. ContentType is copied out of the header block
// before buffer compaction can clobber it, so it is always safe to keep.
type Response struct {
	Status      Status
	ContentType string
	Payload     []byte // nil when the response carried no body
}

// Detach copies the payload out of the receive buffer so the Response stays
// valid after the buffer is reused.
func (r Response) Detach() Response {
	d := r
	if r.Payload != nil {
		d.Payload = append([]byte(nil), r.Payload...)
	}
	return d
}
