// Package rekognition adds AWS moderation labels to image results.
package rekognition

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekognitiontypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// Label is one moderation label reported by the detector.
type Label struct {
	Name       string
	ParentName string
	Confidence float64
}

// Detector fetches moderation labels for raw image bytes.
type Detector interface {
	DetectModerationLabels(ctx context.Context, imageBytes []byte) ([]Label, error)
}

// AWSDetector calls Rekognition with byte payloads, no S3 round trip.
type AWSDetector struct {
	client *rekognition.Client
}

// NewAWSDetector uses ambient AWS credentials. An empty region defers to the environment.
func NewAWSDetector(ctx context.Context, region string) (*AWSDetector, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if r := strings.TrimSpace(region); r != "" {
		opts = append(opts, awsconfig.WithRegion(r))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &AWSDetector{client: rekognition.NewFromConfig(cfg)}, nil
}

func (d *AWSDetector) DetectModerationLabels(ctx context.Context, imageBytes []byte) ([]Label, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image bytes are required")
	}
	out, err := d.client.DetectModerationLabels(ctx, &rekognition.DetectModerationLabelsInput{
		Image: &rekognitiontypes.Image{Bytes: imageBytes},
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect moderation labels: %w", err)
	}
	labels := make([]Label, 0, len(out.ModerationLabels))
	for _, l := range out.ModerationLabels {
		var conf float64
		if l.Confidence != nil {
			conf = float64(*l.Confidence)
		}
		labels = append(labels, Label{
			Name:       aws.ToString(l.Name),
			ParentName: aws.ToString(l.ParentName),
			Confidence: conf,
		})
	}
	return labels, nil
}
