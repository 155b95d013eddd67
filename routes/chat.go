package routes

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"lockchun-chatbot/internal/chat"
	"lockchun-chatbot/internal/config"
	"lockchun-chatbot/internal/logger"
	"lockchun-chatbot/internal/telemetry"
	"lockchun-chatbot/internal/vectorstore"
	"lockchun-chatbot/models"
	"lockchun-chatbot/utils"

	"github.com/gin-gonic/gin"
)

// Fixed response messages for the chat endpoint error classes.
const (
	msgInitFailed     = "Chat service initialization failed. Please try again later."
	msgUnavailable    = "Chat service is currently unavailable. Please check back soon."
	msgConfigError    = "Chat service configuration error. Please contact support."
	msgInvalidJSON    = "Invalid JSON request body."
	msgMessageInvalid = "Message is required and must be a non-empty string."
	msgInternalError  = "An internal server error occurred while processing your request."
)

// rolePlayPattern blocks instruction-override and persona attempts before any
// model call.
var rolePlayPattern = regexp.MustCompile(`(?i)impersonat|speak like|act like|role ?play|persona|ignore.*instruct|forget.*prompt`)

// ChainInvoker is the invocable answer pipeline.
type ChainInvoker interface {
	Invoke(ctx context.Context, question string) (string, error)
}

// ChatDeps carries the chat endpoint's collaborators. BuildChain is called at
// most once: its result, success or failure, is cached for the process
// lifetime.
type ChatDeps struct {
	Vectors    *vectorstore.Service
	Gate       *chat.Gate
	Metrics    *telemetry.Metrics
	BuildChain func() (ChainInvoker, error)
}

func SetupChatRoutes(router *gin.Engine, cfg *config.Config, deps ChatDeps) {
	var (
		chainMu       sync.Mutex
		chainInstance ChainInvoker
		chainBuildErr error
	)

	router.POST("/api/chat", func(c *gin.Context) {
		// Nothing in a single request is allowed to crash the process.
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic in chat handler", "panic", r)
				utils.RespondWithError(c, http.StatusInternalServerError, msgInternalError)
			}
		}()

		ctx := c.Request.Context()

		// 1. Await the one-time vector index initialization
		if err := deps.Vectors.Initialize(ctx); err != nil {
			logger.Error("Vector index initialization failed", "error", err)
			utils.RespondWithError(c, http.StatusServiceUnavailable, msgInitFailed)
			return
		}

		// Double-check: the connection may have dropped after a successful init
		if !deps.Vectors.Ready(ctx) {
			logger.Error("Chat service unavailable - connection check failed after init")
			utils.RespondWithError(c, http.StatusServiceUnavailable, msgUnavailable)
			return
		}

		// 2. Build or reuse the cached RAG chain; a build failure is sticky
		chainMu.Lock()
		if chainInstance == nil && chainBuildErr == nil {
			logger.Info("Building RAG chain instance...")
			chainInstance, chainBuildErr = deps.BuildChain()
			if chainBuildErr != nil {
				logger.Error("Error building RAG chain", "error", chainBuildErr)
			}
		}
		invoker, buildErr := chainInstance, chainBuildErr
		chainMu.Unlock()

		if buildErr != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, msgConfigError)
			return
		}

		// 3. Input validation
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, msgInvalidJSON)
			return
		}
		message, ok := body["message"].(string)
		if !ok || strings.TrimSpace(message) == "" {
			utils.RespondWithError(c, http.StatusBadRequest, msgMessageInvalid)
			return
		}
		message = strings.TrimSpace(message)

		// 4. Security / role-play filter
		if rolePlayPattern.MatchString(message) {
			logger.Warn("Blocked potential role-play/instruction bypass attempt", "message", message)
			if deps.Metrics != nil {
				deps.Metrics.RecordBlocked(ctx, "role_play")
			}
			c.JSON(http.StatusOK, models.ChatResponse{Reply: chat.OutOfScopeReply})
			return
		}

		// 5. Greeting shortcut, suppressed when a domain keyword is present
		if chat.IsGreeting(message) && !chat.HasKeyword(message) {
			logger.Debug("Handling simple greeting", "message", message)
			c.JSON(http.StatusOK, models.ChatResponse{Reply: chat.WelcomeReply})
			return
		}

		// 6. Relevance check
		if !deps.Gate.IsRelevant(ctx, message) {
			logger.Info("Blocked irrelevant question", "message", message)
			if deps.Metrics != nil {
				deps.Metrics.RecordBlocked(ctx, "relevance")
			}
			c.JSON(http.StatusOK, models.ChatResponse{Reply: chat.OutOfScopeReply})
			return
		}

		// 7. Invoke the RAG chain
		reply, err := invoker.Invoke(ctx, message)
		if err != nil {
			logger.Error("RAG chain invocation failed", "error", err)
			utils.RespondWithError(c, http.StatusInternalServerError, msgInternalError)
			return
		}
		c.JSON(http.StatusOK, models.ChatResponse{Reply: reply})
	})
}
