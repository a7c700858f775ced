package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/worthlabs/worthhub/internal/domain"
)

// CommitmentService defines the methods the commitment handler requires
// from the service layer.
type CommitmentService interface {
	Commit(ctx context.Context, topicID uint64, participant domain.Identity, hash domain.Hash, stake uint64) (domain.Commitment, error)
	Reveal(ctx context.Context, topicID uint64, participant domain.Identity, prediction int64, salt domain.Hash) (domain.Commitment, error)
	GetCommitment(ctx context.Context, topicID uint64, participant domain.Identity) (domain.Commitment, error)
	ListCommitments(ctx context.Context, topicID uint64) ([]domain.Commitment, error)
}

// CommitmentHandler serves commit/reveal HTTP endpoints.
type CommitmentHandler struct {
	commitments CommitmentService
	logger      *slog.Logger
	requireSig  bool
}

// NewCommitmentHandler creates a CommitmentHandler.
func NewCommitmentHandler(commitments CommitmentService, logger *slog.Logger, requireSig bool) *CommitmentHandler {
	return &CommitmentHandler{
		commitments: commitments,
		logger:      logHandler(logger, "commitment"),
		requireSig:  requireSig,
	}
}

// commitmentView is the JSON shape of a commitment in API responses. The
// salt is only exposed once the commitment has been revealed; before that
// it is all zeroes anyway.
type commitmentView struct {
	TopicID         uint64          `json:"topic_id"`
	Address         domain.Address  `json:"address"`
	Participant     domain.Identity `json:"participant"`
	CommitmentHash  domain.Hash     `json:"commitment_hash"`
	StakeAmount     uint64          `json:"stake_amount"`
	SubmitOrder     uint32          `json:"submit_order"`
	PredictionValue int64           `json:"prediction_value"`
	Revealed        bool            `json:"revealed"`
	Salt            *domain.Hash    `json:"salt,omitempty"`
	Settled         bool            `json:"settled"`
	PayoutAmount    uint64          `json:"payout_amount"`
}

func viewCommitment(c domain.Commitment) commitmentView {
	v := commitmentView{
		TopicID:         c.TopicID,
		Address:         c.Address(),
		Participant:     c.Participant,
		CommitmentHash:  c.CommitmentHash,
		StakeAmount:     c.StakeAmount,
		SubmitOrder:     c.SubmitOrder,
		PredictionValue: c.PredictionValue,
		Revealed:        c.Revealed,
		Settled:         c.Settled,
		PayoutAmount:    c.PayoutAmount,
	}
	if c.Revealed {
		salt := c.Salt
		v.Salt = &salt
	}
	return v
}

// commitRequest is the body of POST /api/topics/{id}/commit.
type commitRequest struct {
	Participant    domain.Identity `json:"participant"`
	CommitmentHash domain.Hash     `json:"commitment_hash"`
	StakeAmount    uint64          `json:"stake_amount"`
}

// Commit records a hash-locked prediction with its stake.
// POST /api/topics/{id}/commit
func (h *CommitmentHandler) Commit(w http.ResponseWriter, r *http.Request) {
	topicID, err := pathTopicID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	var req commitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Participant.IsZero() {
		writeError(w, http.StatusBadRequest, "participant is required")
		return
	}
	if req.CommitmentHash.IsZero() {
		writeError(w, http.StatusBadRequest, "commitment_hash is required")
		return
	}

	if err := verifyCaller(r, h.requireSig, "commit", topicID, body, req.Participant); err != nil {
		writeDomainError(w, h.logger, r, err, "signature verification failed")
		return
	}

	c, err := h.commitments.Commit(r.Context(), topicID, req.Participant, req.CommitmentHash, req.StakeAmount)
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to commit")
		return
	}

	writeJSON(w, http.StatusCreated, viewCommitment(c))
}

// revealRequest is the body of POST /api/topics/{id}/reveal.
type revealRequest struct {
	Participant     domain.Identity `json:"participant"`
	PredictionValue int64           `json:"prediction_value"`
	Salt            domain.Hash     `json:"salt"`
}

// Reveal discloses a committed prediction and its salt.
// POST /api/topics/{id}/reveal
func (h *CommitmentHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	topicID, err := pathTopicID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	var req revealRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Participant.IsZero() {
		writeError(w, http.StatusBadRequest, "participant is required")
		return
	}

	if err := verifyCaller(r, h.requireSig, "reveal", topicID, body, req.Participant); err != nil {
		writeDomainError(w, h.logger, r, err, "signature verification failed")
		return
	}

	c, err := h.commitments.Reveal(r.Context(), topicID, req.Participant, req.PredictionValue, req.Salt)
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to reveal")
		return
	}

	writeJSON(w, http.StatusOK, viewCommitment(c))
}

// listCommitmentsResponse wraps the commitment list output.
type listCommitmentsResponse struct {
	Commitments []commitmentView `json:"commitments"`
	Total       int              `json:"total"`
}

// ListCommitments returns every commitment for a topic in submit order.
// GET /api/topics/{id}/commitments
func (h *CommitmentHandler) ListCommitments(w http.ResponseWriter, r *http.Request) {
	topicID, err := pathTopicID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}

	commitments, err := h.commitments.ListCommitments(r.Context(), topicID)
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to list commitments")
		return
	}

	views := make([]commitmentView, 0, len(commitments))
	for _, c := range commitments {
		views = append(views, viewCommitment(c))
	}

	writeJSON(w, http.StatusOK, listCommitmentsResponse{
		Commitments: views,
		Total:       len(views),
	})
}

// GetCommitment returns one participant's commitment on a topic.
// GET /api/topics/{id}/commitments/{participant}
func (h *CommitmentHandler) GetCommitment(w http.ResponseWriter, r *http.Request) {
	topicID, err := pathTopicID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}

	participant, err := domain.IdentityFromHex(r.PathValue("participant"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid participant identity")
		return
	}

	c, err := h.commitments.GetCommitment(r.Context(), topicID, participant)
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to get commitment")
		return
	}

	writeJSON(w, http.StatusOK, viewCommitment(c))
}
