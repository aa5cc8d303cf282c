package exportrouter

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/goliatone/go-router"

	"github.com/goliatone/go-workflow-export/export"
)

// Response is the write side the handlers need from a transport.
type Response interface {
	SetHeader(name, value string)
	WriteHeader(status int)
	Write(data []byte) (int, error)
	WriteJSON(status int, payload any) error
	Writer() (io.Writer, bool)
}

var _ Response = routerResponse{}

type routerResponse struct {
	ctx router.Context
}

func (res routerResponse) SetHeader(name, value string) {
	if res.ctx == nil {
		return
	}
	res.ctx.SetHeader(name, value)
}

func (res routerResponse) WriteHeader(status int) {
	if res.ctx == nil {
		return
	}
	res.ctx.Status(status)
}

func (res routerResponse) Write(data []byte) (int, error) {
	if res.ctx == nil {
		return 0, nil
	}
	if err := res.ctx.Send(data); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (res routerResponse) WriteJSON(status int, payload any) error {
	if res.ctx == nil {
		return nil
	}
	return res.ctx.JSON(status, payload)
}

func (res routerResponse) Writer() (io.Writer, bool) {
	if res.ctx == nil {
		return nil, false
	}
	httpCtx, ok := router.AsHTTPContext(res.ctx)
	if !ok || httpCtx.Response() == nil {
		return nil, false
	}
	return httpCtx.Response(), true
}

// decodeBody reads an optional JSON body into v.
func decodeBody(c router.Context, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return export.NewError(export.KindValidation, "invalid request body", err)
	}
	return nil
}

// stream copies r to the response, through the raw writer when the
// transport exposes one and through the router otherwise.
func stream(c router.Context, res Response, r io.Reader) error {
	if w, ok := res.Writer(); ok {
		if hw, ok := w.(interface{ WriteHeader(int) }); ok {
			hw.WriteHeader(http.StatusOK)
		}
		_, err := io.Copy(w, r)
		return err
	}
	return c.SendStream(r)
}
