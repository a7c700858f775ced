package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/worthlabs/worthhub/internal/domain"
	"github.com/worthlabs/worthhub/internal/service"
)

// TopicService defines the methods that the topic handler requires from the
// service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type TopicService interface {
	CreateTopic(ctx context.Context, p service.CreateTopicParams) (domain.Topic, error)
	GetTopic(ctx context.Context, topicID uint64) (domain.Topic, error)
	ListTopics(ctx context.Context, opts domain.ListOpts) ([]domain.Topic, error)
	CountTopics(ctx context.Context) (int64, error)
	Finalize(ctx context.Context, topicID uint64, caller domain.Identity, truthValue int64) (domain.Topic, error)
	Settle(ctx context.Context, topicID uint64, caller domain.Identity, participants []domain.Identity) (domain.Settlement, error)
	GetSettlement(ctx context.Context, topicID uint64) (domain.Settlement, error)
	GetEscrow(ctx context.Context, topicID uint64) (domain.Escrow, error)
}

// TopicHandler serves topic lifecycle HTTP endpoints.
type TopicHandler struct {
	topics     TopicService
	logger     *slog.Logger
	requireSig bool
}

// NewTopicHandler creates a TopicHandler. When requireSig is true, every
// state-changing request must carry a valid instruction signature.
func NewTopicHandler(topics TopicService, logger *slog.Logger, requireSig bool) *TopicHandler {
	return &TopicHandler{
		topics:     topics,
		logger:     logHandler(logger, "topic"),
		requireSig: requireSig,
	}
}

// topicView is the JSON shape of a topic in API responses.
type topicView struct {
	TopicID         uint64             `json:"topic_id"`
	Address         domain.Address     `json:"address"`
	Creator         domain.Identity    `json:"creator"`
	TruthAuthority  domain.Identity    `json:"truth_authority"`
	Description     string             `json:"description"`
	Symbol          string             `json:"symbol"`
	CommitDeadline  int64              `json:"commit_deadline"`
	RevealDeadline  int64              `json:"reveal_deadline"`
	MinStake        uint64             `json:"min_stake"`
	Status          domain.TopicStatus `json:"status"`
	TruthValue      int64              `json:"truth_value"`
	TotalStake      uint64             `json:"total_stake"`
	CommitmentCount uint32             `json:"commitment_count"`
	RevealCount     uint32             `json:"reveal_count"`
}

func viewTopic(t domain.Topic) topicView {
	return topicView{
		TopicID:         t.TopicID,
		Address:         t.Address(),
		Creator:         t.Creator,
		TruthAuthority:  t.TruthAuthority,
		Description:     t.Description,
		Symbol:          t.Symbol,
		CommitDeadline:  t.CommitDeadline,
		RevealDeadline:  t.RevealDeadline,
		MinStake:        t.MinStake,
		Status:          t.Status,
		TruthValue:      t.TruthValue,
		TotalStake:      t.TotalStake,
		CommitmentCount: t.CommitmentCount,
		RevealCount:     t.RevealCount,
	}
}

// createTopicRequest is the body of POST /api/topics.
type createTopicRequest struct {
	TopicID        uint64          `json:"topic_id"`
	Creator        domain.Identity `json:"creator"`
	TruthAuthority domain.Identity `json:"truth_authority"`
	Description    string          `json:"description"`
	Symbol         string          `json:"symbol"`
	CommitDeadline int64           `json:"commit_deadline"`
	RevealDeadline int64           `json:"reveal_deadline"`
	MinStake       uint64          `json:"min_stake"`
}

// CreateTopic opens a new topic with its escrow account.
// POST /api/topics
func (h *TopicHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	var req createTopicRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Creator.IsZero() || req.TruthAuthority.IsZero() {
		writeError(w, http.StatusBadRequest, "creator and truth_authority are required")
		return
	}

	if err := verifyCaller(r, h.requireSig, "create_topic", req.TopicID, body, req.Creator); err != nil {
		writeDomainError(w, h.logger, r, err, "signature verification failed")
		return
	}

	topic, err := h.topics.CreateTopic(r.Context(), service.CreateTopicParams{
		TopicID:        req.TopicID,
		Creator:        req.Creator,
		TruthAuthority: req.TruthAuthority,
		Description:    req.Description,
		Symbol:         req.Symbol,
		CommitDeadline: req.CommitDeadline,
		RevealDeadline: req.RevealDeadline,
		MinStake:       req.MinStake,
	})
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to create topic")
		return
	}

	writeJSON(w, http.StatusCreated, viewTopic(topic))
}

// listTopicsResponse wraps the list endpoint output with metadata.
type listTopicsResponse struct {
	Topics []topicView `json:"topics"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// ListTopics returns topics with pagination and optional status filtering.
// GET /api/topics?limit=50&offset=0&status=open
func (h *TopicHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	topics, err := h.topics.ListTopics(r.Context(), opts)
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to list topics")
		return
	}

	total, err := h.topics.CountTopics(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to count topics")
		return
	}

	views := make([]topicView, 0, len(topics))
	for _, t := range topics {
		views = append(views, viewTopic(t))
	}

	writeJSON(w, http.StatusOK, listTopicsResponse{
		Topics: views,
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// GetTopic returns a single topic by its numeric ID.
// GET /api/topics/{id}
func (h *TopicHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	topicID, err := pathTopicID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}

	topic, err := h.topics.GetTopic(r.Context(), topicID)
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to get topic")
		return
	}

	writeJSON(w, http.StatusOK, viewTopic(topic))
}

// finalizeRequest is the body of POST /api/topics/{id}/finalize.
type finalizeRequest struct {
	Caller     domain.Identity `json:"caller"`
	TruthValue int64           `json:"truth_value"`
}

// Finalize records the realized truth value for a topic.
// POST /api/topics/{id}/finalize
func (h *TopicHandler) Finalize(w http.ResponseWriter, r *http.Request) {
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

	var req finalizeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := verifyCaller(r, h.requireSig, "finalize", topicID, body, req.Caller); err != nil {
		writeDomainError(w, h.logger, r, err, "signature verification failed")
		return
	}

	topic, err := h.topics.Finalize(r.Context(), topicID, req.Caller, req.TruthValue)
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to finalize topic")
		return
	}

	writeJSON(w, http.StatusOK, viewTopic(topic))
}

// settleRequest is the body of POST /api/topics/{id}/settle. Participants
// must cover every commitment on the topic.
type settleRequest struct {
	Caller       domain.Identity   `json:"caller"`
	Participants []domain.Identity `json:"participants"`
}

// Settle distributes escrow according to the scoring rules and closes the
// topic.
// POST /api/topics/{id}/settle
func (h *TopicHandler) Settle(w http.ResponseWriter, r *http.Request) {
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

	var req settleRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := verifyCaller(r, h.requireSig, "settle", topicID, body, req.Caller); err != nil {
		writeDomainError(w, h.logger, r, err, "signature verification failed")
		return
	}

	record, err := h.topics.Settle(r.Context(), topicID, req.Caller, req.Participants)
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to settle topic")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// GetSettlement returns the settlement record of a settled topic.
// GET /api/topics/{id}/settlement
func (h *TopicHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	topicID, err := pathTopicID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}

	record, err := h.topics.GetSettlement(r.Context(), topicID)
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to get settlement")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// GetEscrow returns the escrow account paired with a topic.
// GET /api/topics/{id}/escrow
func (h *TopicHandler) GetEscrow(w http.ResponseWriter, r *http.Request) {
	topicID, err := pathTopicID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}

	escrow, err := h.topics.GetEscrow(r.Context(), topicID)
	if err != nil {
		writeDomainError(w, h.logger, r, err, "failed to get escrow")
		return
	}

	writeJSON(w, http.StatusOK, escrow)
}
