package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pdf-translator/config"
	"pdf-translator/middleware"
	"pdf-translator/models"
	"pdf-translator/translator"
)

// Translator 上传接口依赖的翻译能力
type Translator interface {
	TranslatePDFFormatted(ctx context.Context, inputPath, format, targetLanguage, outputPath string, pages int) error
}

// TranslatorFactory 按请求参数创建翻译器
type TranslatorFactory func(req models.UploadRequest) (Translator, error)

// TaskManager 记录上传任务
type TaskManager struct {
	tasks map[string]*models.TranslateTask
	order []string
	mu    sync.RWMutex
}

func NewTaskManager() *TaskManager {
	return &TaskManager{tasks: make(map[string]*models.TranslateTask)}
}

// AddTask 添加任务
func (tm *TaskManager) AddTask(task *models.TranslateTask) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, exists := tm.tasks[task.ID]; !exists {
		tm.order = append(tm.order, task.ID)
	}
	tm.tasks[task.ID] = task
}

// GetTask 获取任务副本
func (tm *TaskManager) GetTask(taskID string) (models.TranslateTask, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	task, found := tm.tasks[taskID]
	if !found {
		return models.TranslateTask{}, false
	}
	return *task, true
}

// Tasks 按创建顺序返回所有任务
func (tm *TaskManager) Tasks() []models.TranslateTask {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	list := make([]models.TranslateTask, 0, len(tm.order))
	for _, id := range tm.order {
		list = append(list, *tm.tasks[id])
	}
	return list
}

// UpdateTask 更新任务
func (tm *TaskManager) UpdateTask(taskID string, updateFn func(*models.TranslateTask)) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if task, found := tm.tasks[taskID]; found {
		updateFn(task)
	}
}

// Handler 上传、下载接口
type Handler struct {
	cfg           *config.Config
	logger        *zap.Logger
	tasks         *TaskManager
	newTranslator TranslatorFactory
	now           func() time.Time
}

type HandlerOption func(*Handler)

// WithTranslatorFactory 替换翻译器的创建方式
func WithTranslatorFactory(f TranslatorFactory) HandlerOption {
	return func(h *Handler) {
		h.newTranslator = f
	}
}

// WithClock 替换输出文件名使用的时钟
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.now = now
	}
}

// NewHandler 创建 Handler，默认按配置创建 OpenAI 翻译器
func NewHandler(cfg *config.Config, logger *zap.Logger, opts ...HandlerOption) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		cfg:    cfg,
		logger: logger,
		tasks:  NewTaskManager(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.newTranslator == nil {
		var cache *translator.Cache
		if cfg.Cache.Enabled {
			c, err := translator.NewCache(cfg.Cache.Dir)
			if err != nil {
				return nil, err
			}
			cache = c
		}
		h.newTranslator = func(req models.UploadRequest) (Translator, error) {
			return translator.NewFromConfig(cfg, req.ModelName, req.Key(), cache, logger)
		}
	}

	for _, dir := range []string{cfg.Server.UploadDir, cfg.Server.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Register 注册路由
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/upload", h.Upload)
	r.GET("/download/:filename", h.Download)
	r.GET("/tasks", h.Tasks)
}

// Upload 上传 PDF 并同步翻译
func (h *Handler) Upload(c *gin.Context) {
	requestID := middleware.GetRequestID(c)
	log := h.logger.With(zap.String("request_id", requestID))

	if limit := h.cfg.Server.MaxUploadMB << 20; limit > 0 {
		if c.Request.ContentLength > limit {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	var req models.UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing params"})
		return
	}
	req = req.WithDefaults(h.cfg.Model.Name, h.cfg.Model.APIKey)
	if !req.Complete() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing params"})
		return
	}
	if !translator.SupportedFormat(req.FileFormat) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File format not supported"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file part"})
		return
	}
	filename := filepath.Base(file.Filename)
	if file.Filename == "" || filename == "." || filename == string(filepath.Separator) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed"})
		return
	}

	taskID := uuid.New().String()
	task := &models.TranslateTask{
		ID:             taskID,
		RequestID:      requestID,
		SourceFile:     filename,
		TargetLanguage: req.TargetLanguage,
		FileFormat:     req.FileFormat,
		ModelName:      req.ModelName,
		Status:         models.StatusProcessing,
		CreatedAt:      h.now(),
	}
	h.tasks.AddTask(task)

	inputPath := filepath.Join(h.cfg.Server.UploadDir, taskID+"_"+filename)
	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		log.Error("保存上传文件失败", zap.String("file", filename), zap.Error(err))
		h.fail(taskID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Translate fail"})
		return
	}

	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	outputName := stem + "_" + h.now().Format("20060102150405") + "." + translator.OutputExtension(req.FileFormat)
	outputPath := filepath.Join(h.cfg.Server.OutputDir, outputName)

	log.Info("开始翻译",
		zap.String("task_id", taskID),
		zap.String("file", filename),
		zap.String("format", req.FileFormat),
		zap.String("target_language", req.TargetLanguage),
		zap.String("model", req.ModelName))

	tr, err := h.newTranslator(req)
	if err != nil {
		log.Error("创建翻译器失败", zap.String("task_id", taskID), zap.Error(err))
		h.fail(taskID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Translate fail"})
		return
	}

	if err := tr.TranslatePDFFormatted(c.Request.Context(), inputPath, req.FileFormat, req.TargetLanguage, outputPath, 0); err != nil {
		log.Error("翻译失败", zap.String("task_id", taskID), zap.Error(err))
		h.fail(taskID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Translate fail"})
		return
	}

	if err := os.Remove(inputPath); err != nil {
		log.Warn("删除上传文件失败", zap.String("path", inputPath), zap.Error(err))
	}
	h.tasks.UpdateTask(taskID, func(t *models.TranslateTask) {
		t.Status = models.StatusCompleted
		t.CompletedAt = h.now()
		t.OutputFile = outputName
	})
	log.Info("翻译完成", zap.String("task_id", taskID), zap.String("output", outputName))

	c.JSON(http.StatusOK, gin.H{
		"message":      "File converted successfully",
		"download_url": "/download/" + outputName,
	})
}

func (h *Handler) fail(taskID string) {
	h.tasks.UpdateTask(taskID, func(t *models.TranslateTask) {
		t.Status = models.StatusFailed
		t.CompletedAt = h.now()
	})
}

// Download 下载翻译结果
func (h *Handler) Download(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))
	if filename == "." || filename == string(filepath.Separator) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	path := filepath.Join(h.cfg.Server.OutputDir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	c.FileAttachment(path, filename)
}

// Tasks 列出所有任务
func (h *Handler) Tasks(c *gin.Context) {
	taskList := h.tasks.Tasks()
	c.JSON(http.StatusOK, gin.H{
		"tasks": taskList,
		"total": len(taskList),
	})
}
