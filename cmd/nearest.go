package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/homefront-tools/shelter-cli/internal/model"
)

var nearestJSON bool

var nearestCmd = &cobra.Command{
	Use:   "nearest <lat> <lon>",
	Short: "Find the nearest shelters to a point",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return eris.Wrapf(err, "parse latitude %q", args[0])
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return eris.Wrapf(err, "parse longitude %q", args[1])
		}

		env, err := initPipeline("lookup")
		if err != nil {
			return err
		}

		results, err := env.Pipeline.FindNearest(cmd.Context(), lat, lon)
		if err != nil {
			return err
		}

		if nearestJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(nearestResponse(lat, lon, results))
		}

		if len(results) == 0 {
			fmt.Println("No shelters found.")
			return nil
		}
		for i, f := range results {
			fmt.Printf("%d. %s (%s, %dm)\n", i+1, f.Label(), model.CategoryLabel(f.Category), f.DistanceMeters)
			if f.Hours != "" {
				fmt.Printf("   hours: %s\n", f.Hours)
			}
			if f.Phone != "" {
				fmt.Printf("   phone: %s\n", f.Phone)
			}
			if f.Notes != "" {
				fmt.Printf("   notes: %s\n", f.Notes)
			}
			fmt.Printf("   waze: %s\n", wazeLink(f.Lat, f.Lon))
			fmt.Printf("   maps: %s\n", mapsLink(f.Lat, f.Lon))
		}
		return nil
	},
}

func wazeLink(lat, lon float64) string {
	return fmt.Sprintf("https://waze.com/ul?ll=%f,%f&navigate=yes", lat, lon)
}

func mapsLink(lat, lon float64) string {
	return fmt.Sprintf("https://maps.google.com/?q=%f,%f", lat, lon)
}

// shelterView is the outward representation of one result.
type shelterView struct {
	ID             string  `json:"id"`
	Label          string  `json:"label"`
	Category       string  `json:"category"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	DistanceMeters int     `json:"distance_meters"`
	Hours          string  `json:"hours,omitempty"`
	Phone          string  `json:"phone,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	WazeURL        string  `json:"waze_url"`
	MapsURL        string  `json:"maps_url"`
}

type lookupResponse struct {
	Query struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"query"`
	Results []shelterView `json:"results"`
}

func nearestResponse(lat, lon float64, results []model.Facility) lookupResponse {
	var resp lookupResponse
	resp.Query.Lat = lat
	resp.Query.Lon = lon
	resp.Results = make([]shelterView, 0, len(results))
	for _, f := range results {
		resp.Results = append(resp.Results, shelterView{
			ID:             f.ID,
			Label:          f.Label(),
			Category:       model.CategoryLabel(f.Category),
			Lat:            f.Lat,
			Lon:            f.Lon,
			DistanceMeters: f.DistanceMeters,
			Hours:          f.Hours,
			Phone:          f.Phone,
			Notes:          f.Notes,
			WazeURL:        wazeLink(f.Lat, f.Lon),
			MapsURL:        mapsLink(f.Lat, f.Lon),
		})
	}
	return resp
}

func init() {
	nearestCmd.Flags().BoolVar(&nearestJSON, "json", false, "emit results as JSON")
	rootCmd.AddCommand(nearestCmd)
}
