package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Tap30/ripple-events-go/adapters"
)

const PORT = 3000

type EventsPayload struct {
	Events []adapters.Event `json:"events"`
}

func main() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Post("/events", handleEvents)

	log.Printf("🚀 Event collector running at http://localhost:%d", PORT)
	log.Printf("📍 Endpoint: http://localhost:%d/events", PORT)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", PORT), r))
}

func handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		apiKey = r.Header.Get("Authorization")
	}
	log.Printf("🔑 API Key: %s", apiKey)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Failed to read body"})
		return
	}

	var payload EventsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid JSON"})
		return
	}

	for _, ev := range payload.Events {
		log.Printf("📊 %s %s schema=%s payload=%v contexts=%d", ev.ID, ev.Name, ev.Schema, ev.Payload, len(ev.Contexts))
		// Any event carrying trigger_error makes the client retry.
		if trigger, ok := ev.Payload["trigger_error"]; ok && trigger == "true" {
			log.Printf("🔄 Client should retry this request (error triggered)")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "Simulated server error"})
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"success":  true,
		"received": len(payload.Events),
	})
}
