package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/middlewares"
	"github.com/finacore/recognition_backend/models"
	"github.com/finacore/recognition_backend/models/reports"
	"github.com/finacore/recognition_backend/utils"
	"github.com/finacore/recognition_backend/workflow"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch utils.KindOf(err) {
	case utils.ErrorKindValidation:
		status = http.StatusBadRequest
	case utils.ErrorKindConflict:
		status = http.StatusConflict
	case utils.ErrorKindNotFound:
		status = http.StatusNotFound
	case utils.ErrorKindSetup:
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": string(utils.KindOf(err))})
}

func respondBindError(c *gin.Context, err error) {
	if fields := utils.ProcessValidationErrors(err); fields != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func queryInt(c *gin.Context, name string) *int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return &n
		}
	}
	return nil
}

func queryDate(c *gin.Context, name string) (*time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, utils.ValidationError("%s must be a YYYY-MM-DD date", name)
	}
	return &d, nil
}

func generateScheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.GenerateScheduleInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		ctx := c.Request.Context()

		idemKey, priorId, err := workflow.BeginIdempotentOperation(ctx, "generateSchedule", c.GetHeader("x-idempotency-key"))
		if err != nil {
			respondError(c, err)
			return
		}
		if priorId != nil {
			schedule, err := models.GetSchedule(ctx, *priorId)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, workflow.GenerateScheduleResult{Schedule: schedule, IdempotentReplay: true})
			return
		}

		result, err := workflow.GenerateSchedule(ctx, &input)
		if err != nil {
			workflow.FinishIdempotentOperation(ctx, idemKey, nil, err)
			respondError(c, err)
			return
		}
		workflow.FinishIdempotentOperation(ctx, idemKey, &result.Schedule.ID, nil)
		status := http.StatusCreated
		if result.IdempotentReplay {
			status = http.StatusOK
		}
		c.JSON(status, result)
	}
}

func generateFromContractHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.GenerateFromContractInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		schedules, err := workflow.GenerateSchedulesFromContract(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"schedules": schedules})
	}
}

func listSchedulesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := utils.DereferencePtr(queryInt(c, "limit"), 20)
		if limit <= 0 {
			limit = 20
		}
		var after *string
		if v := c.Query("after"); v != "" {
			after = &v
		}
		var family *models.RecognitionFamily
		if v := c.Query("family"); v != "" {
			f := models.RecognitionFamily(v)
			family = &f
		}
		var status *models.ScheduleStatus
		if v := c.Query("status"); v != "" {
			s := models.ScheduleStatus(v)
			status = &s
		}
		connection, err := models.PaginateSchedules(c.Request.Context(), &limit, after,
			queryInt(c, "legal_entity_id"), family, status, queryInt(c, "fiscal_period_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func getScheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
			return
		}
		schedule, err := models.GetSchedule(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, schedule)
	}
}

func createRunHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.CreateRunInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindError(c, err)
			return
		}
		ctx := c.Request.Context()

		idemKey, priorId, err := workflow.BeginIdempotentOperation(ctx, "createRun", c.GetHeader("x-idempotency-key"))
		if err != nil {
			respondError(c, err)
			return
		}
		if priorId != nil {
			run, err := models.GetRun(ctx, *priorId)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"run": run, "idempotent_replay": true})
			return
		}

		run, err := workflow.CreateRun(ctx, &input)
		if err != nil {
			workflow.FinishIdempotentOperation(ctx, idemKey, nil, err)
			respondError(c, err)
			return
		}
		workflow.FinishIdempotentOperation(ctx, idemKey, &run.ID, nil)
		c.JSON(http.StatusCreated, gin.H{"run": run})
	}
}

func listRunsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := utils.DereferencePtr(queryInt(c, "limit"), 20)
		if limit <= 0 {
			limit = 20
		}
		var after *string
		if v := c.Query("after"); v != "" {
			after = &v
		}
		var family *models.RecognitionFamily
		if v := c.Query("family"); v != "" {
			f := models.RecognitionFamily(v)
			family = &f
		}
		var status *models.RunStatus
		if v := c.Query("status"); v != "" {
			s := models.RunStatus(v)
			status = &s
		}
		connection, err := models.PaginateRuns(c.Request.Context(), &limit, after,
			queryInt(c, "legal_entity_id"), family, status, queryInt(c, "fiscal_period_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func getRunHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}
		run, err := models.GetRun(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

// runAction wires post/settle/reverse through one handler shape: path id,
// optional period/notes body, idempotency header.
func runActionHandler(operation string, action func(ctx context.Context, input *workflow.PostRunInput) (*models.RecognitionRun, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}
		input := workflow.PostRunInput{RunId: id}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			input.RunId = id
		}
		ctx := c.Request.Context()

		idemKey, priorId, err := workflow.BeginIdempotentOperation(ctx, operation, c.GetHeader("x-idempotency-key"))
		if err != nil {
			respondError(c, err)
			return
		}
		if priorId != nil {
			run, err := models.GetRun(ctx, *priorId)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"run": run, "idempotent_replay": true})
			return
		}

		run, err := action(ctx, &input)
		if err != nil {
			workflow.FinishIdempotentOperation(ctx, idemKey, nil, err)
			respondError(c, err)
			return
		}
		workflow.FinishIdempotentOperation(ctx, idemKey, &run.ID, nil)
		c.JSON(http.StatusOK, gin.H{"run": run})
	}
}

func reverseRunHandler() gin.HandlerFunc {
	return runActionHandler("reverseRun", func(ctx context.Context, input *workflow.PostRunInput) (*models.RecognitionRun, error) {
		return workflow.ReverseRun(ctx, &workflow.ReverseRunInput{
			RunId:          input.RunId,
			FiscalPeriodId: input.FiscalPeriodId,
			Notes:          input.Notes,
		})
	})
}

func getJournalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid journal id"})
			return
		}
		journal, err := models.GetJournal(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, journal)
	}
}

func splitReportHandler(report func(ctx context.Context, asOfDate time.Time, legalEntityId *int) ([]*reports.MaturitySplitResponse, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		asOf, err := queryDate(c, "as_of_date")
		if err != nil {
			respondError(c, err)
			return
		}
		asOfDate := time.Now().UTC()
		if asOf != nil {
			asOfDate = *asOf
		}
		results, err := report(c.Request.Context(), asOfDate, queryInt(c, "legal_entity_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

func rollforwardWindow(c *gin.Context) (time.Time, time.Time, error) {
	from, err := queryDate(c, "from_date")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := queryDate(c, "to_date")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from == nil || to == nil {
		return time.Time{}, time.Time{}, utils.ValidationError("from_date and to_date are required")
	}
	return *from, *to, nil
}

func rollforwardReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to, err := rollforwardWindow(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var family *models.RecognitionFamily
		if v := c.Query("family"); v != "" {
			f := models.RecognitionFamily(v)
			family = &f
		}
		results, err := reports.GetRollforwardReport(c.Request.Context(), from, to, queryInt(c, "legal_entity_id"), family)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

func rollforwardExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to, err := rollforwardWindow(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var family *models.RecognitionFamily
		if v := c.Query("family"); v != "" {
			f := models.RecognitionFamily(v)
			family = &f
		}
		if err := reports.ExportRollforwardExcel(c.Request.Context(), c.Writer, from, to, queryInt(c, "legal_entity_id"), family); err != nil {
			respondError(c, err)
		}
	}
}

func reconciliationReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := reports.GetReconciliationReport(c.Request.Context(),
			queryInt(c, "fiscal_period_id"), queryInt(c, "legal_entity_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until the DB is ready, app endpoints return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "x-idempotency-key", "x-legal-entity-id")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.SessionMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/schedules", generateScheduleHandler())
	r.POST("/schedules/from-contract", generateFromContractHandler())
	r.GET("/schedules", listSchedulesHandler())
	r.GET("/schedules/:id", getScheduleHandler())

	r.POST("/runs", createRunHandler())
	r.GET("/runs", listRunsHandler())
	r.GET("/runs/:id", getRunHandler())
	r.POST("/runs/:id/post", runActionHandler("postRun", workflow.PostRun))
	r.POST("/runs/:id/settle", runActionHandler("settleRun", workflow.SettleAccrualRun))
	r.POST("/runs/:id/reverse", reverseRunHandler())

	r.GET("/journals/:id", getJournalHandler())

	r.GET("/reports/rollforward", rollforwardReportHandler())
	r.GET("/reports/rollforward/export", rollforwardExportHandler())
	r.GET("/reports/deferred-revenue-split", splitReportHandler(reports.GetDeferredRevenueSplitReport))
	r.GET("/reports/accrual-split", splitReportHandler(reports.GetAccrualSplitReport))
	r.GET("/reports/prepaid-split", splitReportHandler(reports.GetPrepaidExpenseSplitReport))
	r.GET("/reports/reconciliation", reconciliationReportHandler())

	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedis()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as a
	// separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	if err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error; err != nil {
		logger.WithFields(logrus.Fields{"field": "database"}).Warn("failed to set isolation level: " + err.Error())
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
