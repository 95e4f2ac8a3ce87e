package synthesize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TobiSchelling/facultypulse/internal/professor"
)

const recentReviews = 5

// FormatProfessor renders the plain-text description sent to the model:
// identity, scores, tags, subjects and the most recent reviews.
func FormatProfessor(p *professor.Professor) string {
	var b strings.Builder

	b.WriteString("DATOS DEL PROFESOR:\n")
	fmt.Fprintf(&b, "- Nombre: %s\n", p.Name)
	fmt.Fprintf(&b, "- Universidad: %s\n", p.University)
	if p.City != nil && *p.City != "" {
		fmt.Fprintf(&b, "- Ciudad: %s\n", *p.City)
	}
	fmt.Fprintf(&b, "- Departamento: %s\n", p.Department)
	fmt.Fprintf(&b, "- Calidad General: %s/10\n", num(p.OverallQuality))
	fmt.Fprintf(&b, "- Porcentaje de Recomendación: %s%%\n", num(p.RecommendPercent))
	fmt.Fprintf(&b, "- Nivel de Dificultad: %s/5\n", num(p.DifficultyLevel))
	fmt.Fprintf(&b, "- Número de Calificaciones: %d\n", p.RatingCount)

	b.WriteString("\nCARACTERÍSTICAS (ETIQUETAS):\n")
	for _, tag := range p.Tags {
		fmt.Fprintf(&b, "- %s\n", tag)
	}

	b.WriteString("\nMATERIAS IMPARTIDAS:\n")
	for _, s := range p.Subjects() {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	b.WriteString("\nRESEÑAS RECIENTES:\n")
	reviews := p.Ratings
	if len(reviews) > recentReviews {
		reviews = reviews[:recentReviews]
	}
	for _, r := range reviews {
		b.WriteString("\n")
		fmt.Fprintf(&b, "Materia: %s\n", r.Subject)
		quality := "N/D"
		if r.QualityScore != nil {
			quality = num(*r.QualityScore)
		}
		fmt.Fprintf(&b, "Calificación: %s/10\n", quality)
		optional(&b, "Asistencia", r.Attendance)
		optional(&b, "Calificación Recibida", r.GradeReceived)
		optional(&b, "Interés en Clase", r.ClassInterest)
		fmt.Fprintf(&b, "Fecha: %s\n", r.Date)
		fmt.Fprintf(&b, "Comentario: %s\n", r.Comment)
		if len(r.CommentTags) > 0 {
			fmt.Fprintf(&b, "Etiquetas: %s\n", strings.Join(r.CommentTags, ", "))
		}
	}

	return strings.TrimSpace(b.String())
}

func optional(b *strings.Builder, label string, v *string) {
	if v != nil && *v != "" {
		fmt.Fprintf(b, "%s: %s\n", label, *v)
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
