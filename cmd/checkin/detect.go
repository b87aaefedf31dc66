package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/face-checkin/internal/log"
	"github.com/teslashibe/face-checkin/pkg/confidence"
	"github.com/teslashibe/face-checkin/pkg/detection"
	"github.com/teslashibe/face-checkin/pkg/video"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Run both face checks on an image and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

type detectReport struct {
	Faces   detection.Set        `json:"faces"`
	Reading confidence.Reading   `json:"reading"`
	Message string               `json:"message"`
	Confirm *detection.Detection `json:"confirm"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.InitWithOptions(cfg.Log)

	still, err := video.OpenStill(args[0])
	if err != nil {
		return err
	}
	frame, err := still.Frame()
	if err != nil {
		return err
	}

	ctx := context.Background()
	gw := detection.NewYuNet(cfg.Kiosk.Detection)
	if err := gw.Load(ctx, nil); err != nil {
		return err
	}
	defer gw.Close()

	faces, err := gw.ScanAll(ctx, frame)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	best, err := gw.CheckSingle(ctx, frame)
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}

	reading := confidence.Reduce(faces)
	report := detectReport{
		Faces:   faces,
		Reading: reading,
		Message: reading.Band.Message(),
		Confirm: best,
	}
	if !reading.FacePresent {
		report.Message = confidence.NoFaceMessage
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
