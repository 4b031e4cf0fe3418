package http

import (
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/veritas/internal/analysis"
	"github.com/fyrsmithlabs/veritas/internal/chat"
	"github.com/fyrsmithlabs/veritas/internal/lang"
	"github.com/fyrsmithlabs/veritas/internal/logging"
	"github.com/fyrsmithlabs/veritas/internal/prompt"
)

// requestLanguage prefers an explicit language and falls back to the
// Accept-Language header.
func requestLanguage(c echo.Context, explicit string) lang.Language {
	if explicit != "" {
		return lang.Parse(explicit)
	}
	return lang.Parse(c.Request().Header.Get("Accept-Language"))
}

// analysisError maps an analysis failure to an HTTP error. Endpoint failures
// become 502 with the localized notice.
func (s *Server) analysisError(c echo.Context, l lang.Language, err error) error {
	switch {
	case errors.Is(err, analysis.ErrEmptyInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, analysis.ErrOperationFailed):
		return echo.NewHTTPError(http.StatusBadGateway, l.Text(lang.AnalysisError))
	default:
		logging.FromContext(c.Request().Context()).Error(c.Request().Context(), "unexpected analysis error", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, l.Text(lang.AnalysisError))
	}
}

func (s *Server) bindClaim(c echo.Context) (ClaimRequest, lang.Language, error) {
	var req ClaimRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid claim request", zap.Error(err))
		return req, "", echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return req, "", echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			return req, "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return req, requestLanguage(c, req.Language), nil
}

// handleFactCheck runs a fact-check and a virality forecast together.
func (s *Server) handleFactCheck(c echo.Context) error {
	req, l, err := s.bindClaim(c)
	if err != nil {
		return err
	}
	report, err := s.analyzer.Check(c.Request().Context(), req.Text, l, req.Location)
	if err != nil {
		return s.analysisError(c, l, err)
	}
	return c.JSON(http.StatusOK, report)
}

// handleVerify runs a fact-check only.
func (s *Server) handleVerify(c echo.Context) error {
	req, l, err := s.bindClaim(c)
	if err != nil {
		return err
	}
	result, err := s.analyzer.Verify(c.Request().Context(), req.Text, l, req.Location)
	if err != nil {
		return s.analysisError(c, l, err)
	}
	return c.JSON(http.StatusOK, result)
}

// handleVirality forecasts virality. Endpoint failures are reported in the
// prediction itself, never as an error status.
func (s *Server) handleVirality(c echo.Context) error {
	req, l, err := s.bindClaim(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.analyzer.Virality(c.Request().Context(), req.Text, l))
}

// handleDeepfake scans an uploaded image. Both a JSON body with base64 data
// and a multipart form with an "image" file are accepted.
func (s *Server) handleDeepfake(c echo.Context) error {
	var (
		img  prompt.Image
		note string
		l    lang.Language
		err  error
	)

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		img, err = readMultipartImage(c)
		note = c.FormValue("note")
		l = requestLanguage(c, c.FormValue("language"))
	} else {
		var req DeepfakeRequest
		if err := c.Bind(&req); err != nil {
			s.logger.Warn(c.Request().Context(), "invalid deepfake request", zap.Error(err))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		img, err = decodeImage(req.Image, req.MIMEType)
		note = req.Note
		l = requestLanguage(c, req.Language)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := s.analyzer.Deepfake(c.Request().Context(), img, note, l)
	if err != nil {
		return s.analysisError(c, l, err)
	}
	return c.JSON(http.StatusOK, result)
}

func readMultipartImage(c echo.Context) (prompt.Image, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return prompt.Image{}, errors.New("image file is required")
	}
	data, err := readFormFile(fh)
	if err != nil {
		return prompt.Image{}, err
	}
	mimeType := fh.Header.Get(echo.HeaderContentType)
	if mimeType == "" || mimeType == echo.MIMEOctetStream {
		mimeType = http.DetectContentType(data)
	}
	return validImage(data, mimeType)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("cannot read image file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.New("cannot read image file")
	}
	return data, nil
}

// decodeImage accepts plain base64 or a "data:image/png;base64,..." URL.
func decodeImage(encoded, mimeType string) (prompt.Image, error) {
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return prompt.Image{}, errors.New("image data URL must be base64 encoded")
		}
		if mimeType == "" {
			mimeType = strings.TrimSuffix(header, ";base64")
		}
		encoded = payload
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return prompt.Image{}, errors.New("image is not valid base64")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return validImage(data, mimeType)
}

func validImage(data []byte, mimeType string) (prompt.Image, error) {
	if len(data) == 0 {
		return prompt.Image{}, errors.New("image is required")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return prompt.Image{}, errors.New("unsupported image type " + mimeType)
	}
	return prompt.Image{Data: data, MIMEType: mimeType}, nil
}

func sessionResponse(s *chat.Session) SessionResponse {
	return SessionResponse{ID: s.ID(), Language: s.Language(), Messages: s.Messages()}
}

func (s *Server) session(c echo.Context) (*chat.Session, error) {
	sess, err := s.chats.Get(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return sess, nil
}

// handleCreateSession starts a chat session.
func (s *Server) handleCreateSession(c echo.Context) error {
	var req LanguageRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	sess := s.chats.Create(requestLanguage(c, req.Language))
	s.logger.Debug(logging.WithSessionID(c.Request().Context(), sess.ID()), "chat session created")
	return c.JSON(http.StatusCreated, sessionResponse(sess))
}

func (s *Server) handleGetSession(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse(sess))
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	if err := s.chats.Delete(c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// handleSendMessage sends one chat turn. A turn the model could not answer
// still succeeds, carrying the placeholder reply.
func (s *Server) handleSendMessage(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	reply, err := sess.Send(c.Request().Context(), req.Text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrBusy), errors.Is(err, chat.ErrSessionReset):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, SendResponse{
		Message:  reply,
		Messages: sess.Messages(),
		Failed:   err != nil,
	})
}

// handleSetLanguage switches the session language, reseeding it when the
// language changes.
func (s *Server) handleSetLanguage(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	var req LanguageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Language == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "language field is required")
	}
	sess.SetLanguage(lang.Parse(req.Language))
	return c.JSON(http.StatusOK, sessionResponse(sess))
}
