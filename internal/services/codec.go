package services

import (
	"encoding/json"

	"github.com/temcen/linucb-fashion/pkg/models"
)

func encodeRecommendResponse(r *models.RecommendResponse) ([]byte, error) {
	return json.Marshal(r)
}

func decodeRecommendResponse(body []byte) (*models.RecommendResponse, error) {
	var r models.RecommendResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
