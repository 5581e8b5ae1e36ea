package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alnah/go-pdfsandbox"
	"github.com/alnah/go-pdfsandbox/internal/logger"
)

// UploadField is the form field holding the submitted document.
const UploadField = "upload-area"

// multipartMemory bounds the in-memory part of a multipart form.
// The body limit middleware caps the total anyway.
const multipartMemory = 8 << 20

const (
	textPlain      = "text/plain; charset=utf-8"
	pdfContentType = "application/pdf"
)

// LogLineSeparator joins diagnostics in /post-logs responses.
const LogLineSeparator = "\r\n"

var (
	errMissingField = fmt.Errorf("missing form field %q", UploadField)
	errBodyTooLarge = errors.New("request body too large")
)

type startPageData struct {
	Files    []string
	Selected string
	Content  string
}

// handleIndex serves the picker. An unknown file leaves the editor empty.
func (s *Server) handleIndex(c *gin.Context) {
	selected := c.DefaultQuery("file", s.defaultFile)
	content, ok := s.examples.Get(selected)
	if !ok {
		logger.FromContext(c).Debug("example not found", zap.String("file", selected))
	}

	var buf bytes.Buffer
	data := startPageData{
		Files:    s.examples.Filenames(),
		Selected: selected,
		Content:  content,
	}
	if err := s.startPage.Execute(&buf, data); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "rendering page: %v", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// handlePostPDF streams the rendered PDF straight into the response.
func (s *Server) handlePostPDF(c *gin.Context) {
	doc, ok := s.uploadedDocument(c)
	if !ok {
		return
	}

	done := s.metrics.begin("pdf")
	err := s.renderer.Render(c.Request.Context(), pdfsandbox.Request{
		HTML:   doc,
		Output: pdfWriter{c.Writer},
	})
	done(err)
	s.metrics.addPDFBytes(c.Writer.Size())
	if err == nil {
		if !c.Writer.Written() {
			c.Data(http.StatusOK, pdfContentType, nil)
		}
		return
	}

	_ = c.Error(err)
	if !c.Writer.Written() {
		c.Data(http.StatusInternalServerError, textPlain, []byte(err.Error()))
		return
	}

	// Headers are gone; the only way to signal failure is a broken stream.
	logger.FromContext(c).Error("PDF stream interrupted",
		zap.Int("bytes_written", c.Writer.Size()),
		zap.Error(err),
	)
	panic(http.ErrAbortHandler)
}

// pdfWriter labels the response as a PDF on the first write, so an error
// reported before any output keeps its own content type.
type pdfWriter struct {
	w gin.ResponseWriter
}

func (p pdfWriter) Write(b []byte) (int, error) {
	if !p.w.Written() {
		p.w.Header().Set("Content-Type", pdfContentType)
	}
	return p.w.Write(b)
}

// handlePostLogs renders without keeping the PDF and returns the INFO and
// higher diagnostics, one per line.
func (s *Server) handlePostLogs(c *gin.Context) {
	doc, ok := s.uploadedDocument(c)
	if !ok {
		return
	}

	var collector pdfsandbox.Collector
	done := s.metrics.begin("logs")
	err := s.renderer.Render(c.Request.Context(), pdfsandbox.Request{
		HTML:        doc,
		Diagnostics: collector.Consume,
	})
	done(err)

	c.Header("X-Content-Type-Options", "nosniff")
	if err != nil {
		_ = c.Error(err)
		c.Data(http.StatusInternalServerError, textPlain, []byte(err.Error()))
		return
	}

	diags := pdfsandbox.FilterDiagnostics(collector.Diagnostics(), pdfsandbox.LevelInfo)
	c.Data(http.StatusOK, textPlain, []byte(pdfsandbox.JoinMessages(diags, LogLineSeparator)))
}

func (s *Server) handleHelp(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.helpPage)
}

type healthResponse struct {
	Status    string                     `json:"status"`
	Examples  int                        `json:"examples"`
	PoolSize  int                        `json:"pool_size,omitempty"`
	FontCache *pdfsandbox.FontCacheStats `json:"font_cache,omitempty"`
}

func (s *Server) handleHealthz(c *gin.Context) {
	resp := healthResponse{
		Status:   "ok",
		Examples: s.examples.Len(),
	}
	if sr, ok := s.renderer.(statsRenderer); ok {
		resp.PoolSize = sr.PoolSize()
		if cache := sr.FontCache(); cache != nil {
			stats := cache.Stats()
			resp.FontCache = &stats
		}
	}
	c.JSON(http.StatusOK, resp)
}

// uploadedDocument reads the upload field and writes the error response
// itself when it cannot.
func (s *Server) uploadedDocument(c *gin.Context) (string, bool) {
	doc, err := formValue(c.Request)
	switch {
	case err == nil:
		return doc, true
	case errors.Is(err, errBodyTooLarge):
		c.Data(http.StatusRequestEntityTooLarge, textPlain, []byte(err.Error()))
	default:
		c.Data(http.StatusBadRequest, textPlain, []byte(err.Error()))
	}
	_ = c.Error(err)
	return "", false
}

// formValue parses a urlencoded or multipart body and returns the upload
// field unmodified. An empty field is valid; an absent one is not.
func formValue(req *http.Request) (string, error) {
	var err error
	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
		err = req.ParseMultipartForm(multipartMemory)
	} else {
		err = req.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit)
		}
		return "", fmt.Errorf("parsing form: %w", err)
	}

	values, ok := req.PostForm[UploadField]
	if !ok || len(values) == 0 {
		return "", errMissingField
	}
	return values[0], nil
}
