package web

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/sheet"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/staging"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/store"
)

const maxUploadSize = 20 << 20 // 20MB

// handleStage accepts a multipart spreadsheet upload plus period fields,
// saves the file under the staging directory, and stages the
// reconciliation.
func (s *Server) handleStage(c *gin.Context) {
	p, ok := periodFromForm(c)
	if !ok {
		return
	}
	kind := store.CollaboratorKind(c.PostForm("kind"))
	if !kind.Payable() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "kind must be contractor or employee"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file field required"})
		return
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file exceeds maximum size of 20MB"})
		return
	}

	uploadDir := filepath.Join(s.service.Staging().Dir(), "uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	dst := filepath.Join(uploadDir, uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	result, err := s.service.Stage(c.Request.Context(), dst, p, kind)
	if err != nil {
		os.Remove(dst)

		var sheetErr *sheet.SheetNotFoundError
		var rowErr *sheet.RowValidationError
		if errors.As(err, &sheetErr) || errors.As(err, &rowErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// handleConfirm consumes a staging token. Body: {"merge": bool}.
func (s *Server) handleConfirm(c *gin.Context) {
	var body struct {
		Merge bool `json:"merge"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	result, err := s.service.Confirm(c.Request.Context(), c.Param("token"), body.Merge)
	if err != nil {
		if errors.Is(err, staging.ErrTokenInvalid) {
			c.JSON(http.StatusGone, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func (s *Server) handleDiscard(c *gin.Context) {
	if err := s.service.Discard(c.Param("token")); err != nil {
		if errors.Is(err, staging.ErrTokenInvalid) {
			c.JSON(http.StatusGone, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDeletePeriod(c *gin.Context) {
	p, ok := periodFromQuery(c)
	if !ok {
		return
	}
	kind := store.CollaboratorKind(c.Query("kind"))
	if kind != "" && !kind.Payable() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "kind must be contractor or employee"})
		return
	}

	result, err := s.service.DeletePeriod(c.Request.Context(), p, kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func (s *Server) handlePrecheck(c *gin.Context) {
	p, ok := periodFromQuery(c)
	if !ok {
		return
	}

	result, err := s.service.Precheck(c.Request.Context(), p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func periodFromForm(c *gin.Context) (store.Period, bool) {
	return parsePeriod(c, c.PostForm("month"), c.PostForm("year"))
}

func periodFromQuery(c *gin.Context) (store.Period, bool) {
	return parsePeriod(c, c.Query("month"), c.Query("year"))
}

func parsePeriod(c *gin.Context, monthStr, yearStr string) (store.Period, bool) {
	month, err1 := strconv.Atoi(monthStr)
	year, err2 := strconv.Atoi(yearStr)
	p := store.Period{Month: month, Year: year}
	if err1 != nil || err2 != nil || !p.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "month and year are required"})
		return store.Period{}, false
	}
	return p, true
}
