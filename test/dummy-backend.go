package main

import (
	"fmt"
	"log"
	"net/http"
)

// Stand-in for a metered backend (ML service / workflow runner). Reports
// usage telemetry the way real backends do, so the gateway's post-proxy
// charging can be exercised end to end.
func main() {
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Usage-Tokens", "120")
		w.Header().Set("X-Usage-Nodes", "14")
		w.Header().Set("X-Usage-Components", "ai_agent=1,integration=2")
		fmt.Fprintf(w, `{"message": "Hello from dummy backend on port 3001", "path": "%s"}`, r.URL.Path)
	})

	log.Println("Dummy backend starting on :3001")
	if err := http.ListenAndServe(":3001", nil); err != nil {
		log.Fatal(err)
	}
}
