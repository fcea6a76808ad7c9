package http

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"quiz-learning-service/internal/app"
	"quiz-learning-service/internal/domain"
)

// QuizHandler exposes generation and session use cases over REST.
type QuizHandler struct {
	service        *app.QuizService
	maxUploadBytes int64
}

func NewQuizHandler(service *app.QuizService, maxUploadBytes int64) *QuizHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &QuizHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// generateBody is the JSON form of a generation request. Missing settings
// fall back to the form defaults.
type generateBody struct {
	Method              string `json:"method"`
	Topic               string `json:"topic"`
	Difficulty          string `json:"difficulty"`
	QuestionCount       *int   `json:"questionCount"`
	QuizFormat          string `json:"quizFormat"`
	IncludeExplanations *bool  `json:"includeExplanations"`
}

func (b generateBody) request() domain.GenerationRequest {
	req := domain.GenerationRequest{
		Method:           domain.GenerationMethod(b.Method),
		Topic:            b.Topic,
		GenerationConfig: domain.DefaultGenerationConfig(),
	}
	if req.Method == "" {
		req.Method = domain.MethodTopic
	}
	if b.Difficulty != "" {
		req.Difficulty = domain.Difficulty(b.Difficulty)
	}
	if b.QuestionCount != nil {
		req.QuestionCount = *b.QuestionCount
	}
	if b.QuizFormat != "" {
		req.Format = domain.QuizFormat(b.QuizFormat)
	}
	if b.IncludeExplanations != nil {
		req.IncludeExplanations = *b.IncludeExplanations
	}
	return req
}

// SuggestTopics handles GET /api/topics?q=
func (h *QuizHandler) SuggestTopics(c *gin.Context) {
	success(c, http.StatusOK, h.service.SuggestTopics(c.Query("q")))
}

// Generate handles POST /api/quizzes/generate. A JSON body asks for a topic
// quiz, a multipart body with a "file" part asks for a document quiz.
func (h *QuizHandler) Generate(c *gin.Context) {
	var req domain.GenerationRequest
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		var ok bool
		if req, ok = h.documentRequest(c); !ok {
			return
		}
	} else {
		var body generateBody
		if err := c.ShouldBindJSON(&body); err != nil {
			fail(c, http.StatusBadRequest, ErrInvalidPayload, "invalid request body", nil)
			return
		}
		req = body.request()
	}

	quiz, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		if c.Request.Context().Err() != nil {
			// Client went away; nobody is listening for the response.
			c.Abort()
			return
		}
		failErr(c, err)
		return
	}
	success(c, http.StatusCreated, quiz)
}

func (h *QuizHandler) documentRequest(c *gin.Context) (domain.GenerationRequest, bool) {
	req := domain.GenerationRequest{
		Method:           domain.MethodDocument,
		GenerationConfig: domain.DefaultGenerationConfig(),
	}
	if v := c.PostForm("difficulty"); v != "" {
		req.Difficulty = domain.Difficulty(v)
	}
	if v := c.PostForm("quizFormat"); v != "" {
		req.Format = domain.QuizFormat(v)
	}
	if v := c.PostForm("questionCount"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			failErr(c, domain.NewValidationError("questionCount", "questionCount must be a number"))
			return req, false
		}
		req.QuestionCount = n
	}
	if v := c.PostForm("includeExplanations"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			failErr(c, domain.NewValidationError("includeExplanations", "includeExplanations must be true or false"))
			return req, false
		}
		req.IncludeExplanations = include
	}

	header, err := c.FormFile("file")
	if err != nil {
		// Leave Document nil; validation reports the missing upload.
		return req, true
	}
	if header.Size > h.maxUploadBytes {
		fail(c, http.StatusRequestEntityTooLarge, ErrFileTooLarge, "uploaded document is too large", nil)
		return req, false
	}
	content, err := readUpload(header)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrInvalidPayload, "could not read uploaded document", nil)
		return req, false
	}
	req.Document = &domain.Document{Name: header.Filename, Content: content}
	return req, true
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// GetQuiz handles GET /api/quizzes/:id
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quiz, err := h.service.GetQuiz(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, http.StatusOK, quiz)
}

// StartSession handles POST /api/quizzes/:id/sessions
func (h *QuizHandler) StartSession(c *gin.Context) {
	session, err := h.service.StartSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, http.StatusCreated, session.Snapshot())
}

// GetSession handles GET /api/sessions/:id
func (h *QuizHandler) GetSession(c *gin.Context) {
	session, err := h.service.Session(c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, http.StatusOK, session.Snapshot())
}

// GetResult handles GET /api/sessions/:id/result
func (h *QuizHandler) GetResult(c *gin.Context) {
	result, err := h.service.Result(c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

// Retake handles POST /api/sessions/:id/retake
func (h *QuizHandler) Retake(c *gin.Context) {
	session, err := h.service.Retake(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, http.StatusCreated, session.Snapshot())
}

// Exit handles DELETE /api/sessions/:id?confirm=true
func (h *QuizHandler) Exit(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	if err := h.service.Exit(c.Request.Context(), c.Param("id"), confirmed); err != nil {
		failErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
