package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/olegbakhtin/document-qa-service/internal/core/domain"
	"github.com/olegbakhtin/document-qa-service/internal/core/ports"
)

const excerptMaxChars = 200

// AskConfig tunes one question-answering pipeline instance. Zero
// values fall back to the defaults below.
type AskConfig struct {
	TopK                 int
	SubQueryTopK         int
	MaxSubQueries        int
	MaxConcurrent        int
	RRFK                 int
	KeywordWeights       domain.FusionWeights
	HybridWeights        domain.FusionWeights
	BM25K1               float64
	BM25B                float64
	MaxExpansionsPerTerm int
	ContextMaxMessages   int
	SynthesisTemperature float64
	DemoMode             bool
	MinRelevanceScore    float64
	OffTopicMessage      string
}

func (c AskConfig) normalized() AskConfig {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.SubQueryTopK <= 0 {
		c.SubQueryTopK = 10
	}
	if c.MaxSubQueries <= 0 {
		c.MaxSubQueries = 5
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = c.MaxSubQueries
	}
	if c.RRFK <= 0 {
		c.RRFK = defaultRRFK
	}
	if c.KeywordWeights == (domain.FusionWeights{}) {
		c.KeywordWeights = domain.DefaultKeywordWeights()
	}
	if c.HybridWeights == (domain.FusionWeights{}) {
		c.HybridWeights = domain.DefaultHybridWeights()
	}
	if c.BM25K1 <= 0 {
		c.BM25K1 = defaultBM25K1
	}
	if c.BM25B <= 0 {
		c.BM25B = defaultBM25B
	}
	if c.MaxExpansionsPerTerm <= 0 {
		c.MaxExpansionsPerTerm = 2
	}
	if c.ContextMaxMessages <= 0 {
		c.ContextMaxMessages = 10
	}
	if c.SynthesisTemperature <= 0 {
		c.SynthesisTemperature = 0.2
	}
	if c.MinRelevanceScore <= 0 {
		c.MinRelevanceScore = 0.35
	}
	return c
}

// AskUseCase answers one question against the indexed collection:
// plan, retrieve concurrently, merge, rank, decide, synthesize.
type AskUseCase struct {
	planner   ports.QueryPlanner
	embedder  ports.Embedder
	index     ports.VectorIndex
	expander  ports.QueryExpander
	generator ports.AnswerGenerator
	convLog   ports.ConversationLog
	lookup    ports.DocumentLookup
	cache     ports.SynthesisCache
	cfg       AskConfig
}

func NewAskUseCase(
	planner ports.QueryPlanner,
	embedder ports.Embedder,
	index ports.VectorIndex,
	expander ports.QueryExpander,
	generator ports.AnswerGenerator,
	convLog ports.ConversationLog,
	lookup ports.DocumentLookup,
	cache ports.SynthesisCache,
	cfg AskConfig,
) *AskUseCase {
	return &AskUseCase{
		planner:   planner,
		embedder:  embedder,
		index:     index,
		expander:  expander,
		generator: generator,
		convLog:   convLog,
		lookup:    lookup,
		cache:     cache,
		cfg:       cfg.normalized(),
	}
}

func (uc *AskUseCase) Ask(ctx context.Context, query domain.AskQuery) (*domain.CitedAnswer, error) {
	question := strings.TrimSpace(query.Question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is empty"))
	}
	topK := query.TopK
	if topK <= 0 {
		topK = uc.cfg.TopK
	}

	conversationID := uc.ensureConversation(ctx, query)
	uc.appendTurn(ctx, conversationID, "user", question, nil)

	// A cached evidence set lets a repeated question skip planning and
	// retrieval entirely. Narrowed requests bypass it: their evidence
	// was gathered without the filter.
	if len(query.DocumentIDs) == 0 && query.Collection == "" {
		if answer, ok := uc.answerFromCachedEvidence(ctx, question); ok {
			answer.ConversationID = conversationID
			uc.appendTurn(ctx, conversationID, "assistant", answer.Answer, map[string]string{"action": string(answer.Action)})
			return answer, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	conversationContext := uc.buildConversationContext(ctx, conversationID)

	plan, err := uc.planner.Decompose(ctx, question, conversationContext, domain.PlanOptions{
		TargetDocumentIDs: query.DocumentIDs,
		Collection:        query.Collection,
		ModeHint:          query.ModeHint,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrPlanning, "decompose question", err)
	}

	subQueries := uc.normalizeSubQueries(plan, question)
	merged, err := uc.retrieveAll(ctx, query, subQueries)
	if err != nil {
		return nil, err
	}

	sources := uc.resolveSources(ctx, merged)
	mode := resolveSearchMode(plan)
	top := uc.rank(ctx, question, mode, merged, sources, topK)

	decision := decideFlow(plan, top, flowConfig{
		demoMode:          uc.cfg.DemoMode,
		minRelevanceScore: uc.cfg.MinRelevanceScore,
		offTopicMessage:   uc.cfg.OffTopicMessage,
	})

	answer := &domain.CitedAnswer{
		ConversationID: conversationID,
		Action:         decision.action,
		Mode:           mode,
	}
	switch decision.action {
	case domain.FlowAskClarification:
		answer.Answer = decision.message
		answer.Flags.AskedForClarification = true
	case domain.FlowOffTopic:
		answer.Answer = decision.message
		answer.Flags.IsOffTopic = true
	case domain.FlowListSources:
		answer.Answer = formatSourceList(top, sources)
		answer.Sources = buildCitations(top, sources)
	default:
		gen, err := uc.synthesize(ctx, question, conversationContext, top, sources)
		if err != nil {
			return nil, err
		}
		answer.Answer = gen.Text
		answer.Model = gen.Model
		answer.Usage = gen.Usage
		answer.Sources = buildCitations(top, sources)
	}

	uc.appendTurn(ctx, conversationID, "assistant", answer.Answer, map[string]string{"action": string(answer.Action)})
	return answer, nil
}

// ensureConversation creates a conversation when the caller did not
// supply one. Conversation logging is best-effort and never fails the
// request.
func (uc *AskUseCase) ensureConversation(ctx context.Context, query domain.AskQuery) string {
	if uc.convLog == nil {
		return query.ConversationID
	}
	if query.ConversationID != "" {
		return query.ConversationID
	}
	id, err := uc.convLog.CreateConversation(ctx, query.Collection)
	if err != nil {
		slog.Warn("conversation_create_failed", "error", err)
		return ""
	}
	return id
}

func (uc *AskUseCase) appendTurn(ctx context.Context, conversationID, role, content string, metadata map[string]string) {
	if uc.convLog == nil || conversationID == "" || content == "" {
		return
	}
	if err := uc.convLog.AddMessage(ctx, conversationID, role, content, metadata); err != nil {
		slog.Warn("conversation_append_failed", "role", role, "error", err)
	}
}

func (uc *AskUseCase) buildConversationContext(ctx context.Context, conversationID string) string {
	if uc.convLog == nil || conversationID == "" {
		return ""
	}
	text, err := uc.convLog.BuildContext(ctx, conversationID, uc.cfg.ContextMaxMessages)
	if err != nil {
		slog.Warn("conversation_context_failed", "error", err)
		return ""
	}
	return text
}

// normalizeSubQueries orders the plan's sub-queries by priority and
// caps their count. A plan with no sub-queries that does not ask for
// clarification degrades to retrieving the raw question.
func (uc *AskUseCase) normalizeSubQueries(plan *domain.QueryPlan, question string) []domain.SubQuery {
	subQueries := make([]domain.SubQuery, 0, len(plan.SubQueries))
	for _, sq := range plan.SubQueries {
		if strings.TrimSpace(sq.Text) == "" {
			continue
		}
		if sq.TopK <= 0 {
			sq.TopK = uc.cfg.SubQueryTopK
		}
		subQueries = append(subQueries, sq)
	}
	if len(subQueries) == 0 {
		if plan.NeedsClarification {
			return nil
		}
		return []domain.SubQuery{{Text: question, Priority: 0, TopK: uc.cfg.SubQueryTopK}}
	}

	sort.SliceStable(subQueries, func(i, j int) bool {
		return subQueries[i].Priority < subQueries[j].Priority
	})
	if len(subQueries) > uc.cfg.MaxSubQueries {
		subQueries = subQueries[:uc.cfg.MaxSubQueries]
	}
	return subQueries
}

// retrieveAll runs sub-query retrieval concurrently and merges the
// batches. A failed sub-query contributes nothing; only cancellation
// aborts the whole fan-out.
func (uc *AskUseCase) retrieveAll(ctx context.Context, query domain.AskQuery, subQueries []domain.SubQuery) ([]domain.RetrievedSegment, error) {
	if len(subQueries) == 0 {
		return nil, nil
	}

	batches := make([][]domain.RetrievedSegment, len(subQueries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.MaxConcurrent)

	for i, sq := range subQueries {
		g.Go(func() error {
			segments, err := uc.retrieveOne(gctx, query, sq)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("subquery_retrieval_failed", "purpose", sq.Purpose, "error", err)
				return nil
			}
			batches[i] = segments
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("retrieve sub-queries: %w", err)
	}
	return mergeSegments(batches), nil
}

func (uc *AskUseCase) retrieveOne(ctx context.Context, query domain.AskQuery, sq domain.SubQuery) ([]domain.RetrievedSegment, error) {
	vector, err := uc.embedder.EmbedQuery(ctx, sq.Text)
	if err != nil {
		return nil, fmt.Errorf("embed sub-query: %w", err)
	}
	segments, err := uc.index.Search(ctx, query.Collection, vector, sq.TopK, query.DocumentIDs)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return segments, nil
}

// resolveSources maps owning documents to their metadata once per
// request. Resolution failures degrade to missing entries, which rank
// as the oldest possible documents.
func (uc *AskUseCase) resolveSources(ctx context.Context, merged []domain.RetrievedSegment) map[string]domain.SourceDocument {
	if uc.lookup == nil || len(merged) == 0 {
		return nil
	}
	ids := make([]string, 0, len(merged))
	seen := make(map[string]struct{}, len(merged))
	for _, seg := range merged {
		docID := candidateDocID(seg)
		if docID == "" {
			continue
		}
		if _, ok := seen[docID]; ok {
			continue
		}
		seen[docID] = struct{}{}
		ids = append(ids, docID)
	}
	if len(ids) == 0 {
		return nil
	}
	sources, err := uc.lookup.ResolveSources(ctx, ids)
	if err != nil {
		slog.Warn("source_resolve_failed", "count", len(ids), "error", err)
		return nil
	}
	return sources
}

func resolveSearchMode(plan *domain.QueryPlan) domain.SearchMode {
	if plan.Mode == domain.PlanModeTraditional {
		return domain.SearchModeSemantic
	}
	switch plan.QueryType {
	case domain.QueryTypeKeyword, domain.QueryTypeNavigation:
		return domain.SearchModeKeyword
	case domain.QueryTypeSemantic:
		return domain.SearchModeSemantic
	default:
		return domain.SearchModeHybrid
	}
}

// rank orders merged candidates for the chosen mode. Semantic mode is
// a pure dense ordering; the other modes fuse dense, BM25, salience
// and freshness ranks.
func (uc *AskUseCase) rank(ctx context.Context, question string, mode domain.SearchMode, merged []domain.RetrievedSegment, sources map[string]domain.SourceDocument, topK int) []rankedCandidate {
	if len(merged) == 0 {
		return nil
	}

	candidates := make([]rankedCandidate, len(merged))
	for i, seg := range merged {
		candidates[i] = rankedCandidate{segment: seg}
		if doc, ok := sources[candidateDocID(seg)]; ok {
			candidates[i].createdAt = doc.CreatedAt
		}
	}

	if mode == domain.SearchModeSemantic {
		return trimCandidates(sortByDense(candidates), topK)
	}

	lexicalQuery := question
	if uc.expander != nil {
		expanded, err := uc.expander.Expand(ctx, question, uc.cfg.MaxExpansionsPerTerm)
		if err != nil {
			slog.Warn("query_expansion_failed", "error", err)
		} else if strings.TrimSpace(expanded) != "" {
			lexicalQuery = expanded
		}
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.segment.Text
	}
	scores := newLexicalScorer(texts, uc.cfg.BM25K1, uc.cfg.BM25B).ScoreAll(lexicalQuery)
	for i := range candidates {
		candidates[i].bm25 = scores[i]
	}

	weights := uc.cfg.HybridWeights
	if mode == domain.SearchModeKeyword {
		weights = uc.cfg.KeywordWeights
	}
	return trimCandidates(fuseRanked(candidates, weights, uc.cfg.RRFK), topK)
}

// synthesize produces the final answer text. A cached answer for the
// same question and evidence wins; generation failures fall back to a
// deterministic excerpt summary and are never cached.
func (uc *AskUseCase) synthesize(ctx context.Context, question, conversationContext string, top []rankedCandidate, sources map[string]domain.SourceDocument) (domain.Generation, error) {
	evidence := joinEvidence(top)
	evidenceHash := domain.HashEvidence(evidence)

	if uc.cache != nil {
		if cached, ok := uc.cache.TryGet(question, evidenceHash); ok {
			return domain.Generation{Text: cached}, nil
		}
	}

	prompt := synthesisPrompt(question, conversationContext, top, sources)
	gen, err := uc.generator.Generate(ctx, prompt, domain.GenerateOptions{Temperature: uc.cfg.SynthesisTemperature})
	if err != nil {
		if ctx.Err() != nil {
			return domain.Generation{}, ctx.Err()
		}
		slog.Warn("synthesis_fallback", "error", err)
		return domain.Generation{Text: fallbackAnswer(top, sources)}, nil
	}

	if uc.cache != nil {
		uc.cache.Set(question, evidence, gen.Text, sourceDocumentIDs(top))
	}
	return gen, nil
}

// answerFromCachedEvidence serves a repeated question from the cache.
// A synthesis hit returns immediately; a model-change miss
// re-synthesizes from the stored evidence without re-retrieving.
func (uc *AskUseCase) answerFromCachedEvidence(ctx context.Context, question string) (*domain.CitedAnswer, bool) {
	if uc.cache == nil {
		return nil, false
	}
	ev, ok := uc.cache.TryGetEvidence(question)
	if !ok {
		return nil, false
	}

	if cached, ok := uc.cache.TryGet(question, ev.EvidenceHash); ok {
		return &domain.CitedAnswer{
			Answer:  cached,
			Sources: uc.documentCitations(ctx, ev.SourceDocumentIDs),
			Action:  domain.FlowSynthesize,
		}, true
	}

	prompt := synthesisPromptFromEvidence(question, ev.Evidence)
	gen, err := uc.generator.Generate(ctx, prompt, domain.GenerateOptions{Temperature: uc.cfg.SynthesisTemperature})
	if err != nil {
		slog.Warn("evidence_resynthesis_failed", "error", err)
		return nil, false
	}

	uc.cache.Set(question, ev.Evidence, gen.Text, ev.SourceDocumentIDs)
	return &domain.CitedAnswer{
		Answer:  gen.Text,
		Sources: uc.documentCitations(ctx, ev.SourceDocumentIDs),
		Action:  domain.FlowSynthesize,
		Model:   gen.Model,
		Usage:   gen.Usage,
	}, true
}

// documentCitations builds document-level citations when segment-level
// detail is no longer available.
func (uc *AskUseCase) documentCitations(ctx context.Context, docIDs []string) []domain.Citation {
	if len(docIDs) == 0 {
		return nil
	}
	var resolved map[string]domain.SourceDocument
	if uc.lookup != nil {
		var err error
		resolved, err = uc.lookup.ResolveSources(ctx, docIDs)
		if err != nil {
			slog.Warn("source_resolve_failed", "count", len(docIDs), "error", err)
		}
	}

	citations := make([]domain.Citation, 0, len(docIDs))
	for i, docID := range docIDs {
		name := docID
		if doc, ok := resolved[docID]; ok && doc.Name != "" {
			name = doc.Name
		}
		citations = append(citations, domain.Citation{
			Number:       i + 1,
			DocumentID:   docID,
			DocumentName: name,
		})
	}
	return citations
}

func buildCitations(top []rankedCandidate, sources map[string]domain.SourceDocument) []domain.Citation {
	citations := make([]domain.Citation, 0, len(top))
	for i, c := range top {
		citations = append(citations, domain.Citation{
			Number:       i + 1,
			DocumentID:   candidateDocID(c.segment),
			DocumentName: sourceName(c.segment, sources),
			SegmentID:    c.segment.ID,
			Excerpt:      truncateRunes(c.segment.Text, excerptMaxChars),
			Section:      c.segment.SectionTitle,
		})
	}
	return citations
}

func sourceDocumentIDs(top []rankedCandidate) []string {
	ids := make([]string, 0, len(top))
	seen := make(map[string]struct{}, len(top))
	for _, c := range top {
		docID := candidateDocID(c.segment)
		if docID == "" {
			continue
		}
		if _, ok := seen[docID]; ok {
			continue
		}
		seen[docID] = struct{}{}
		ids = append(ids, docID)
	}
	return ids
}
