package util

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ProbeVideoSeconds 使用 ffprobe 读取视频时长（秒，向上取整）
func ProbeVideoSeconds(videoPath string) (int, error) {
	jsonOutput, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return 0, fmt.Errorf("probe video: %w", err)
	}
	return parseProbeDuration(jsonOutput)
}

func parseProbeDuration(jsonOutput string) (int, error) {
	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(jsonOutput), &result); err != nil {
		return 0, fmt.Errorf("parse probe output: %w", err)
	}

	duration, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", result.Format.Duration, err)
	}
	return int(math.Ceil(duration)), nil
}
