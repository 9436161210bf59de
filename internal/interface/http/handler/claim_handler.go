package handler

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/interface/http/dto"
	"github.com/ignatzorin/bounty-indexer/internal/interface/http/response"
	"github.com/ignatzorin/bounty-indexer/internal/usecase/claim"
)

// ClaimHandler обслуживает операции агентов: заявка, решение, вердикт.
type ClaimHandler struct {
	prepareClaimUC  *claim.PrepareClaimUseCase
	submitWorkUC    *claim.SubmitWorkUseCase
	submitVerdictUC *claim.SubmitVerdictUseCase
}

func NewClaimHandler(
	prepareClaimUC *claim.PrepareClaimUseCase,
	submitWorkUC *claim.SubmitWorkUseCase,
	submitVerdictUC *claim.SubmitVerdictUseCase,
) *ClaimHandler {
	return &ClaimHandler{
		prepareClaimUC:  prepareClaimUC,
		submitWorkUC:    submitWorkUC,
		submitVerdictUC: submitVerdictUC,
	}
}

// PrepareClaim обрабатывает POST /api/tasks/:chainId/:taskId/claims.
func (h *ClaimHandler) PrepareClaim(c *gin.Context) {
	chainID, taskID, ok := chainParams(c, "taskId")
	if !ok {
		response.BadRequest(c, "некорректный идентификатор задачи")
		return
	}

	var req dto.PrepareClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	agent, err := valueobject.NewAddress(req.Agent)
	if err != nil {
		response.Error(c, err)
		return
	}

	created, err := h.prepareClaimUC.Execute(c.Request.Context(), claim.PrepareClaimInput{
		ChainID:     chainID,
		ChainTaskID: taskID,
		Agent:       agent,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToClaimResponse(created))
}

// SubmitWork обрабатывает POST /api/tasks/:chainId/:taskId/submissions.
// Принимает JSON {agent, content} либо multipart-форму с полями agent и file.
func (h *ClaimHandler) SubmitWork(c *gin.Context) {
	chainID, taskID, ok := chainParams(c, "taskId")
	if !ok {
		response.BadRequest(c, "некорректный идентификатор задачи")
		return
	}

	rawAgent, content, ok := readSubmission(c)
	if !ok {
		return
	}
	agent, err := valueobject.NewAddress(rawAgent)
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.submitWorkUC.Execute(c.Request.Context(), claim.SubmitWorkInput{
		ChainID:     chainID,
		ChainTaskID: taskID,
		Agent:       agent,
		Content:     content,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.ToSubmissionResponse(out.Submission, out.Object, out.Updated)
	if out.Updated {
		response.Success(c, resp)
		return
	}
	response.Created(c, resp)
}

// SubmitVerdict обрабатывает POST /api/tasks/:chainId/:taskId/verdicts.
func (h *ClaimHandler) SubmitVerdict(c *gin.Context) {
	chainID, taskID, ok := chainParams(c, "taskId")
	if !ok {
		response.BadRequest(c, "некорректный идентификатор задачи")
		return
	}

	var req dto.SubmitVerdictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	claimID, err := uuid.Parse(req.ClaimID)
	if err != nil {
		response.BadRequest(c, "некорректный ID заявки")
		return
	}
	verifier, err := valueobject.NewAddress(req.Verifier)
	if err != nil {
		response.Error(c, err)
		return
	}

	verdict, err := h.submitVerdictUC.Execute(c.Request.Context(), claim.SubmitVerdictInput{
		ChainID:     chainID,
		ChainTaskID: taskID,
		ClaimID:     claimID,
		Verifier:    verifier,
		Outcome:     req.Outcome,
		Score:       req.Score,
		Feedback:    []byte(req.Feedback),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToVerdictResponse(verdict))
}

func readSubmission(c *gin.Context) (string, []byte, bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			response.BadRequest(c, "поле file обязательно")
			return "", nil, false
		}
		f, err := file.Open()
		if err != nil {
			response.BadRequest(c, "не удалось прочитать файл")
			return "", nil, false
		}
		defer f.Close()

		content, err := io.ReadAll(f)
		if err != nil {
			response.BadRequest(c, "не удалось прочитать файл")
			return "", nil, false
		}
		return c.PostForm("agent"), content, true
	}

	var req dto.SubmitWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return "", nil, false
	}
	return req.Agent, []byte(req.Content), true
}
