package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"prowriter/article"
	"prowriter/metadata"
	"prowriter/publisher"
	"prowriter/wizard"
)

type topicReq struct {
	Topic string `json:"topic"`
}

type sessionResp struct {
	SessionID string          `json:"session_id"`
	Cached    bool            `json:"cached"`
	Snapshot  wizard.Snapshot `json:"snapshot"`
}

type sectionPatchReq struct {
	Title       *string `json:"title"`
	Instruction *string `json:"instruction"`
	Content     *string `json:"content"`
}

type methodReq struct {
	MethodID string `json:"method_id"`
}

type stepResp struct {
	Step wizard.Step `json:"step"`
}

type previewResp struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

type metadataResp struct {
	Generated bool             `json:"generated"`
	Metadata  article.Metadata `json:"metadata"`
}

type valueReq struct {
	Value  string                  `json:"value"`
	Values []string                `json:"values"`
	Link   *article.LinkSuggestion `json:"link"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req topicReq
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.ExpireIdle()
	sess, err := s.newSession()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.start(r.Context(), sess, req.Topic)
	if err != nil {
		_ = sess.wizard.Close()
		s.writeError(w, r, err)
		return
	}
	s.sessions.set(sess)
	s.log.Info("session created", zap.String("session", sess.id), zap.Bool("cached", res.Cached))
	writeJSON(w, http.StatusCreated, sessionResp{SessionID: sess.id, Cached: res.Cached, Snapshot: sess.wizard.Snapshot()})
}

// start runs the wizard and restores saved metadata for a known topic.
func (s *Server) start(ctx context.Context, sess *session, topic string) (wizard.StartResult, error) {
	res, err := sess.wizard.Start(ctx, topic)
	if err != nil {
		return res, err
	}
	sess.meta.Restore(article.Metadata{})
	if res.Cached {
		if d, err := s.deps.Store.FindByTopic(ctx, topic); err == nil && d.Metadata != nil {
			sess.meta.Restore(*d.Metadata)
		}
	}
	return res, nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request, sess *session) {
	var req topicReq
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.start(r.Context(), sess, req.Topic)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResp{SessionID: sess.id, Cached: res.Cached, Snapshot: sess.wizard.Snapshot()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, sess *session) {
	writeJSON(w, http.StatusOK, sessionResp{SessionID: sess.id, Snapshot: sess.wizard.Snapshot()})
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.remove(r.PathValue("id"))
	if !ok {
		s.writeError(w, r, errSessionNotFound)
		return
	}
	_ = sess.wizard.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSectionPatch(w http.ResponseWriter, r *http.Request, sess *session) {
	var req sectionPatchReq
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("sid")
	found := true
	if req.Title != nil {
		found = sess.wizard.UpdateSectionTitle(id, *req.Title) && found
	}
	if req.Instruction != nil {
		found = sess.wizard.UpdateSectionInstruction(id, *req.Instruction) && found
	}
	if req.Content != nil {
		found = sess.wizard.UpdateSectionContent(id, *req.Content) && found
	}
	if !found {
		s.writeError(w, r, wizard.ErrSectionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.wizard.Snapshot())
}

func (s *Server) handleSectionDelete(w http.ResponseWriter, r *http.Request, sess *session) {
	if err := sess.wizard.DeleteSection(r.PathValue("sid")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.wizard.Snapshot())
}

func (s *Server) handleApplyMethod(w http.ResponseWriter, r *http.Request, sess *session) {
	var req methodReq
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, ok := s.deps.Methods.Get(req.MethodID)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: unknown method %q", article.ErrInvalidMethod, req.MethodID))
		return
	}
	if !sess.wizard.ApplyMethod(r.PathValue("sid"), m) {
		s.writeError(w, r, wizard.ErrSectionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.wizard.Snapshot())
}

func (s *Server) handleGenerateOne(w http.ResponseWriter, r *http.Request, sess *session) {
	if err := sess.wizard.GenerateOneSection(r.Context(), r.PathValue("sid")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.wizard.Snapshot())
}

func (s *Server) handleGenerateAll(w http.ResponseWriter, r *http.Request, sess *session) {
	if err := sess.wizard.GenerateAllRemaining(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.wizard.Snapshot())
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request, sess *session) {
	step, err := sess.wizard.Advance()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResp{Step: step})
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request, sess *session) {
	step, err := sess.wizard.Back()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResp{Step: step})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, sess *session) {
	sess.wizard.Reset()
	sess.meta.Restore(article.Metadata{})
	writeJSON(w, http.StatusOK, stepResp{Step: sess.wizard.Step()})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request, sess *session) {
	md := sess.wizard.Preview()
	html, err := publisher.RenderHTML(md)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResp{Markdown: md, HTML: html})
}

// --- Metadata ---

func (s *Server) metadataResult(sess *session) metadataResp {
	return metadataResp{Generated: sess.meta.Generated(), Metadata: sess.meta.Result()}
}

func (s *Server) handleMetadataGet(w http.ResponseWriter, r *http.Request, sess *session) {
	writeJSON(w, http.StatusOK, s.metadataResult(sess))
}

func (s *Server) handleMetadataGenerate(w http.ResponseWriter, r *http.Request, sess *session) {
	if _, err := sess.meta.Generate(r.Context(), sess.wizard.Topic(), sess.wizard.FullText()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.metadataResult(sess))
}

func (s *Server) handleMetadataSlug(w http.ResponseWriter, r *http.Request, sess *session) {
	var req valueReq
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess.meta.SetSlug(req.Value)
	writeJSON(w, http.StatusOK, s.metadataResult(sess))
}

func (s *Server) handleMetadataList(w http.ResponseWriter, r *http.Request, sess *session) {
	var req valueReq
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.meta.SetList(metadata.Field(r.PathValue("field")), req.Values); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.metadataResult(sess))
}

func (s *Server) handleMetadataItem(w http.ResponseWriter, r *http.Request, sess *session) {
	index, err := pathIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req valueReq
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	field := metadata.Field(r.PathValue("field"))
	if field == metadata.FieldLinks {
		if req.Link == nil {
			s.writeError(w, r, fmt.Errorf("%w: link is required", errBadRequest))
			return
		}
		err = sess.meta.SetLink(index, *req.Link)
	} else {
		err = sess.meta.SetItem(field, index, req.Value)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.metadataResult(sess))
}

func (s *Server) handleMetadataRemove(w http.ResponseWriter, r *http.Request, sess *session) {
	index, err := pathIndex(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.meta.RemoveItem(metadata.Field(r.PathValue("field")), index); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.metadataResult(sess))
}

func (s *Server) handleMetadataExport(w http.ResponseWriter, r *http.Request, sess *session) {
	text, err := sess.meta.Export()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func (s *Server) handleMetadataSave(w http.ResponseWriter, r *http.Request, sess *session) {
	sess.wizard.Flush()
	if err := sess.meta.Save(r.Context(), sess.wizard.Topic()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.metadataResult(sess))
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request, sess *session) {
	if s.deps.Publisher == nil {
		s.writeError(w, r, publisher.ErrNotConfigured)
		return
	}
	topic := sess.wizard.Topic()
	if topic == "" {
		s.writeError(w, r, fmt.Errorf("%w: no article loaded", wizard.ErrInvalidTransition))
		return
	}
	sess.wizard.Flush()
	if sess.meta.Generated() {
		if err := sess.meta.Save(r.Context(), topic); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	res, err := s.deps.Publisher.Publish(r.Context(), topic)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func pathIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return 0, errors.Join(errBadRequest, err)
	}
	return i, nil
}
