package server

import "net/http"

type HomePageData struct {
	Title  string
	Notice string
	Error  string
}

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	data := HomePageData{
		Title:  "Schuldhulp",
		Notice: r.URL.Query().Get("notice"),
		Error:  r.URL.Query().Get("error"),
	}

	s.renderTemplate(w, "page.home", data)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
