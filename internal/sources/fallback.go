package sources

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opencivic/pulso/internal/content"
)

// FallbackResults synthesizes exactly three placeholder results for a query.
// The search service uses it when both the local index and the external
// search came up empty or failed, so a non-empty query never renders an
// empty page.
func FallbackResults(query string) []content.Item {
	now := time.Now()
	templates := []struct {
		title    string
		category string
	}{
		{"Resultados recientes sobre %q", "General"},
		{"Cobertura local: %s", "Local"},
		{"Análisis y contexto de %s", "Política"},
	}
	out := make([]content.Item, 0, len(templates))
	for i, tpl := range templates {
		out = append(out, content.Item{
			ID:             uuid.NewString(),
			Title:          fmt.Sprintf(tpl.title, query),
			Summary:        fmt.Sprintf("No hay cobertura directa disponible; resultado generado para %q.", query),
			URL:            "",
			PublishedAt:    now.Add(-time.Duration(i+1) * time.Hour),
			SourceID:       "fallback",
			SourceName:     "Resultados sugeridos",
			SourceCategory: tpl.category,
			Tags:           []string{query},
			RelevanceScore: webSearchFloorScore - float64(i),
		})
	}
	return out
}
