package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/music-quiz/internal/errors"
	"github.com/wfunc/music-quiz/internal/service"
)

// PackHandler 曲包处理器
type PackHandler struct {
	packService service.PackService
}

// NewPackHandler 创建曲包处理器
func NewPackHandler(packService service.PackService) *PackHandler {
	return &PackHandler{packService: packService}
}

// Import 导入曲包
// @Summary 导入曲包
// @Description 整包导入曲目与艺人，同名艺人自动去重
// @Tags Pack
// @Accept json
// @Produce json
// @Param request body service.PackImportRequest true "曲包内容"
// @Success 200 {object} models.Pack
// @Router /api/v1/packs [post]
func (h *PackHandler) Import(c *gin.Context) {
	var req service.PackImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	pack, err := h.packService.Import(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pack)
}

// Get 查询曲包详情
// @Summary 查询曲包详情
// @Tags Pack
// @Produce json
// @Param id path int true "曲包ID"
// @Success 200 {object} models.Pack
// @Router /api/v1/packs/{id} [get]
func (h *PackHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, apperrors.New(apperrors.ErrInvalidParam, "曲包ID必须是数字"))
		return
	}

	pack, err := h.packService.Get(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pack)
}

// List 查询曲包列表
// @Summary 查询曲包列表
// @Tags Pack
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {array} models.Pack
// @Router /api/v1/packs [get]
func (h *PackHandler) List(c *gin.Context) {
	packs, pagination, err := h.packService.List(
		c.Request.Context(),
		queryInt(c, "page", 1),
		queryInt(c, "page_size", 20),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"packs":      packs,
		"pagination": pagination,
	})
}
