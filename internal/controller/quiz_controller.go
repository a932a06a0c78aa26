package controller

import (
	"equiz_backend/internal/repository"
	"equiz_backend/internal/service"
	"equiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Service *service.QuizService
}

func NewQuizController(svc *service.QuizService) *QuizController {
	return &QuizController{Service: svc}
}

// @Summary Create a quiz
// @Description Creates a draft quiz with its question list and accessible classes.
// @Tags Quizzes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateQuizRequest true "quiz"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/quizzes [post]
func (c *QuizController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Service.Create(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// @Summary List quizzes
// @Tags Quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "status filter"
// @Param courseId query string false "course filter"
// @Param evaluationType query string false "evaluation type filter"
// @Success 200 {object} util.Response
// @Router /api/quizzes [get]
func (c *QuizController) List(ctx *gin.Context) {
	result, err := c.Service.List(ctx.Request.Context(), repository.QuizFilter{
		Status:         ctx.Query("status"),
		CourseID:       ctx.Query("courseId"),
		EvaluationType: ctx.Query("evaluationType"),
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Get a quiz
// @Tags Quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "quiz id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/quizzes/{id} [get]
func (c *QuizController) Get(ctx *gin.Context) {
	quiz, err := c.Service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// @Summary Update a quiz
// @Tags Quizzes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "quiz id"
// @Param body body service.UpdateQuizRequest true "fields to change"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/quizzes/{id} [put]
func (c *QuizController) Update(ctx *gin.Context) {
	var req service.UpdateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Service.Update(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// @Summary Delete a quiz
// @Description Removes the quiz with its questions links, classes and attempts.
// @Tags Quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "quiz id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/quizzes/{id} [delete]
func (c *QuizController) Delete(ctx *gin.Context) {
	if err := c.Service.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary Publish a quiz
// @Tags Quizzes
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "quiz id"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/quizzes/{id}/publish [post]
func (c *QuizController) Publish(ctx *gin.Context) {
	quiz, err := c.Service.Publish(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}
