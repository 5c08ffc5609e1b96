package main

import (
	"encoding/json"
	"flag"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
)

type placeEntry struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Locality string  `json:"locality"`
	Region   string  `json:"region"`
}

// matchRadius is how close a query must land to a fixture entry, in degrees.
const matchRadius = 0.05

func main() {
	var (
		port = flag.String("port", "9099", "port to listen on")
		data = flag.String("data", "mock-places.json", "path to mock data file")
	)
	flag.Parse()

	file, err := os.ReadFile(*data)
	if err != nil {
		log.Fatalf("read mock data: %v", err)
	}

	var places []placeEntry
	if err := json.Unmarshal(file, &places); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/reverse", func(w http.ResponseWriter, r *http.Request) {
		lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
		lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
		if latErr != nil || lonErr != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		for _, place := range places {
			if math.Abs(place.Lat-lat) <= matchRadius && math.Abs(place.Lon-lon) <= matchRadius {
				w.Header().Set("Content-Type", "application/json")
				if err := json.NewEncoder(w).Encode(map[string]string{
					"locality": place.Locality,
					"region":   place.Region,
				}); err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
				}
				return
			}
		}
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	addr := ":" + *port
	log.Printf("mock geocoder listening on %s (%d places)", addr, len(places))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
