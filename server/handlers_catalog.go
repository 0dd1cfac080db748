package server

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"

	"prowriter/article"
)

type nameReq struct {
	Name string `json:"name"`
}

type importReq struct {
	Names []string `json:"names"`
}

type importResp struct {
	Added int `json:"added"`
}

func (s *Server) handleDraftList(w http.ResponseWriter, r *http.Request) {
	drafts, err := s.deps.Store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drafts)
}

func (s *Server) handleDraftDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMethodList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Methods.All())
}

func (s *Server) handleMethodAdd(w http.ResponseWriter, r *http.Request) {
	var req article.ExpansionMethod
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.deps.Methods.Add(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handlePublishedList(w http.ResponseWriter, r *http.Request) {
	lists, err := s.deps.Catalog.Lists(r.Context(), r.URL.Query().Get("refresh") == "1")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lists.Articles)
}

func (s *Server) handlePublishedAdd(w http.ResponseWriter, r *http.Request) {
	var req article.PublishedArticle
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.URL) == "" {
		s.writeError(w, r, fmt.Errorf("%w: title and url are required", errBadRequest))
		return
	}
	a, err := s.deps.Catalog.AddPublished(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handlePublishedDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Catalog.DeletePublished(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePublishedClear(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Catalog.DeleteAllPublished(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	lists, err := s.deps.Catalog.Lists(r.Context(), r.URL.Query().Get("refresh") == "1")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lists.Categories)
}

func (s *Server) handleCategoryAdd(w http.ResponseWriter, r *http.Request) {
	var req nameReq
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, r, fmt.Errorf("%w: name is required", errBadRequest))
		return
	}
	c, err := s.deps.Catalog.AddCategory(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleCategoryClear(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Catalog.DeleteAllCategories(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Catalog.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCategoryImport takes either JSON {"names": [...]} or a plain/CSV body with one name per line.
func (s *Server) handleCategoryImport(w http.ResponseWriter, r *http.Request) {
	var names []string
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "text/") {
		var err error
		names, err = readLines(http.MaxBytesReader(w, r.Body, 4<<20))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	} else {
		var req importReq
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		names = req.Names
	}
	n, err := s.deps.Catalog.ImportCategories(r.Context(), names)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResp{Added: n})
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		name := strings.Trim(strings.TrimSpace(sc.Text()), `"`)
		if name != "" {
			out = append(out, name)
		}
	}
	return out, sc.Err()
}

func (s *Server) handleAIConfigGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.deps.Store.GetAIConfig(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleAIConfigPut(w http.ResponseWriter, r *http.Request) {
	var cfg article.AIConfig
	if err := decode(w, r, &cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !cfg.Valid() {
		s.writeError(w, r, fmt.Errorf("%w: counts must be non-negative and teaser prompts non-empty", errBadRequest))
		return
	}
	if err := s.deps.Store.SaveAIConfig(r.Context(), cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
