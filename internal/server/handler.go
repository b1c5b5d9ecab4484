package server

import (
	"net/http"
	"strings"
	"time"

	"gide/internal/judge"
	"gide/internal/language"
	"gide/internal/prefs"
	"gide/internal/shortcut"
	"gide/internal/svc"
	appErr "gide/pkg/errors"
	"gide/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler serves the editor API.
type Handler struct {
	svc      *svc.ServiceContext
	upgrader websocket.Upgrader
}

func NewHandler(svcCtx *svc.ServiceContext) *Handler {
	return &Handler{svc: svcCtx, upgrader: newUpgrader(svcCtx.Config.CORS.AllowedOrigins)}
}

func (h *Handler) Languages(c *gin.Context) {
	response.Success(c, h.svc.Languages.All())
}

func (h *Handler) Shortcuts(c *gin.Context) {
	response.Success(c, shortcut.Table())
}

type preferencesResponse struct {
	Preferences prefs.Preferences `json:"preferences"`
	Defaulted   []string          `json:"defaulted,omitempty"`
}

func (h *Handler) GetPreferences(c *gin.Context) {
	snap := h.svc.Prefs.Load(c.Request.Context())
	response.Success(c, preferencesResponse{Preferences: snap.Preferences(), Defaulted: snap.Defaulted()})
}

type preferencesRequest struct {
	Theme    *string `json:"theme"`
	FontSize *int    `json:"font_size"`
	Language *string `json:"language"`
	Code     *string `json:"code"`
}

// UpdatePreferences applies the fields present in the body.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Language != nil {
		*req.Language = language.Normalize(*req.Language)
	}
	if req.Language != nil && !h.svc.Languages.Supports(*req.Language) {
		response.Error(c, appErr.UnsupportedLanguage(*req.Language))
		return
	}
	if req.FontSize != nil && *req.FontSize <= 0 {
		response.Error(c, appErr.ValidationError("font_size", "must be positive"))
		return
	}
	if req.Theme != nil && strings.TrimSpace(*req.Theme) == "" {
		response.Error(c, appErr.ValidationError("theme", "must not be empty"))
		return
	}

	ctx := c.Request.Context()
	ok := true
	if req.Theme != nil {
		ok = h.svc.Prefs.SaveTheme(ctx, strings.TrimSpace(*req.Theme)) && ok
	}
	if req.FontSize != nil {
		ok = h.svc.Prefs.SaveFontSize(ctx, *req.FontSize) && ok
	}
	if req.Language != nil {
		ok = h.svc.Prefs.SaveLanguage(ctx, *req.Language) && ok
	}
	if req.Code != nil {
		ok = h.svc.Prefs.SaveCode(ctx, *req.Code) && ok
	}
	if !ok {
		response.Error(c, appErr.New(appErr.PersistenceFailed))
		return
	}
	h.GetPreferences(c)
}

type snippetView struct {
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Language  string    `json:"language"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) ListSnippets(c *gin.Context) {
	loaded := h.svc.Prefs.LoadSnippets(c.Request.Context())
	names := prefs.SnippetNames(loaded.Value)
	items := make([]snippetView, 0, len(names))
	for _, name := range names {
		sn := loaded.Value[name]
		items = append(items, snippetView{Name: name, Code: sn.Code, Language: sn.Language, Timestamp: sn.Timestamp})
	}
	response.Success(c, items)
}

func (h *Handler) GetSnippet(c *gin.Context) {
	name := c.Param("name")
	sn, ok := h.svc.Prefs.GetSnippet(c.Request.Context(), name)
	if !ok {
		response.Error(c, appErr.Newf(appErr.SnippetNotFound, "snippet %q not found", name))
		return
	}
	response.Success(c, snippetView{Name: name, Code: sn.Code, Language: sn.Language, Timestamp: sn.Timestamp})
}

type snippetRequest struct {
	Code     string `json:"code"`
	Language string `json:"language" binding:"required"`
}

func (h *Handler) SaveSnippet(c *gin.Context) {
	name := c.Param("name")
	if strings.TrimSpace(name) == "" {
		response.Error(c, appErr.New(appErr.SnippetNameInvalid))
		return
	}
	var req snippetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.Language = language.Normalize(req.Language)
	if !h.svc.Languages.Supports(req.Language) {
		response.Error(c, appErr.UnsupportedLanguage(req.Language))
		return
	}
	ctx := c.Request.Context()
	if !h.svc.Prefs.SaveSnippet(ctx, name, prefs.Snippet{Code: req.Code, Language: req.Language}) {
		response.Error(c, appErr.New(appErr.PersistenceFailed))
		return
	}
	h.GetSnippet(c)
}

func (h *Handler) DeleteSnippet(c *gin.Context) {
	name := c.Param("name")
	existed, err := h.svc.Prefs.DeleteSnippet(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !existed {
		response.Error(c, appErr.Newf(appErr.SnippetNotFound, "snippet %q not found", name))
		return
	}
	response.Success(c, gin.H{"name": name})
}

type formatRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type formatResponse struct {
	Code         string `json:"code"`
	UsedFallback bool   `json:"used_fallback"`
	Cause        string `json:"cause,omitempty"`
}

func (h *Handler) Format(c *gin.Context) {
	var req formatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	outcome := h.svc.Formatter.FormatWithFallback(c.Request.Context(), req.Code, req.Language)
	resp := formatResponse{Code: outcome.Code, UsedFallback: outcome.UsedFallback}
	if outcome.Cause != nil {
		resp.Cause = outcome.Cause.Error()
	}
	response.Success(c, resp)
}

type runRequest struct {
	SourceCode string `json:"source_code"`
	Language   string `json:"language" binding:"required"`
	Stdin      string `json:"stdin"`
}

func (r runRequest) toJudge() judge.Request {
	return judge.Request{SourceCode: r.SourceCode, Language: language.Normalize(r.Language), Stdin: r.Stdin}
}

type runResponse struct {
	judge.Normalized
	Status *judge.Status `json:"status,omitempty"`
	Time   *string       `json:"time,omitempty"`
	Memory *int          `json:"memory,omitempty"`
}

// Run executes code and answers once the judge settles.
func (h *Handler) Run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	jr := req.toJudge()
	if err := h.svc.CheckRun(jr); err != nil {
		response.Error(c, err)
		return
	}

	ctx, cancel := h.svc.RunContext(c.Request.Context())
	defer cancel()
	result, err := h.svc.Executor.Execute(ctx, jr, nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := result.Status
	response.Success(c, runResponse{
		Normalized: judge.FormatExecutionResult(&result),
		Status:     &status,
		Time:       result.Time,
		Memory:     result.Memory,
	})
}

func health(c *gin.Context) {
	c.Status(http.StatusOK)
}
