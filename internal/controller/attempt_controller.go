package controller

import (
	"equiz_backend/internal/repository"
	"equiz_backend/internal/service"
	"equiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Service *service.AttemptService
}

func NewAttemptController(svc *service.AttemptService) *AttemptController {
	return &AttemptController{Service: svc}
}

// @Summary Start a quiz attempt
// @Description Opens a new attempt and returns the questions without answer keys.
// @Tags Attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "quiz id"
// @Success 201 {object} util.Response{data=service.StartAttemptResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/quizzes/{id}/attempt [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.Service.Start(ctx.Request.Context(), ctx.Param("id"), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// @Summary Submit a quiz attempt
// @Tags Attempts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param attemptId path string true "attempt id"
// @Param body body service.SubmitAttemptRequest true "responses keyed by question id"
// @Success 200 {object} util.Response{data=service.SubmitAttemptResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/attempts/{attemptId}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.Submit(ctx.Request.Context(), ctx.Param("attemptId"), claims.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Results of a finished attempt
// @Tags Attempts
// @Produce json
// @Security ApiKeyAuth
// @Param attemptId path string true "attempt id"
// @Success 200 {object} util.Response{data=service.AttemptResults}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/attempts/{attemptId}/results [get]
func (c *AttemptController) Results(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	results, err := c.Service.GetResults(ctx.Request.Context(), ctx.Param("attemptId"), claims)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, results)
}

// @Summary Grade an attempt
// @Description Awards manual points to essay questions and rescores the attempt.
// @Tags Attempts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param attemptId path string true "attempt id"
// @Param body body service.GradeAttemptRequest true "points per essay question"
// @Success 200 {object} util.Response{data=service.GradeAttemptResult}
// @Failure 400 {object} util.Response
// @Router /api/attempts/{attemptId}/grade [post]
func (c *AttemptController) Grade(ctx *gin.Context) {
	var req service.GradeAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.Grade(ctx.Request.Context(), ctx.Param("attemptId"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary Responses to a quiz
// @Tags Attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "quiz id"
// @Param studentId query int false "only this student"
// @Param status query string false "only attempts in this status"
// @Success 200 {object} util.Response{data=service.QuizResponses}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/quizzes/{id}/responses [get]
func (c *AttemptController) Responses(ctx *gin.Context) {
	studentID, err := util.ParseUintParam(ctx.Query("studentId"))
	if err != nil {
		util.BadRequest(ctx, "studentId must be a positive integer")
		return
	}
	result, err := c.Service.ListResponses(ctx.Request.Context(), ctx.Param("id"), repository.AttemptFilter{
		StudentID: studentID,
		Status:    ctx.Query("status"),
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
