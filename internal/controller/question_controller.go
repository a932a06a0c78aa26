package controller

import (
	"equiz_backend/internal/repository"
	"equiz_backend/internal/service"
	"equiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	Service *service.QuestionService
}

func NewQuestionController(svc *service.QuestionService) *QuestionController {
	return &QuestionController{Service: svc}
}

// @Summary Create a question
// @Tags Questions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateQuestionRequest true "question"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/questions [post]
func (c *QuestionController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Service.Create(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary Get a question
// @Tags Questions
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "question id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/questions/{id} [get]
func (c *QuestionController) Get(ctx *gin.Context) {
	q, err := c.Service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary Search the question bank
// @Tags Questions
// @Produce json
// @Security ApiKeyAuth
// @Param courseCode query string false "course code"
// @Param difficulty query string false "easy, medium, hard or all"
// @Param type query string false "question type or all"
// @Param search query string false "text search"
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(20)
// @Success 200 {object} util.Response
// @Router /api/question-bank [get]
func (c *QuestionController) Bank(ctx *gin.Context) {
	page, limit := util.Paging(ctx.Query("page"), ctx.Query("limit"))
	result, err := c.Service.Search(ctx.Request.Context(), repository.QuestionFilter{
		CourseCode: ctx.Query("courseCode"),
		Difficulty: ctx.Query("difficulty"),
		Type:       ctx.Query("type"),
		Search:     ctx.Query("search"),
	}, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
