package assistant

import (
	"fmt"
	"strings"

	"github.com/sells-group/audit-cli/internal/model"
)

const (
	systemAnalyze = "Eres un experto en auditorías de la norma ISO 9001. Analiza el caso de estudio proporcionado " +
		"y responde únicamente con base en esta norma. Tu respuesta debe incluir los hallazgos clave de forma estructurada " +
		"y enumerada (por ejemplo: 1. ..., 2. ..., etc.), usando saltos de línea para separar claramente cada punto. " +
		"No escribas todo en un solo párrafo."
	systemRealCase  = "Eres un experto en certificaciones ISO 9001."
	systemGenerate  = "Eres un experto en casos de implementación ISO 9001."
	systemSummary   = "Eres un auditor experto en ISO 9001."
	systemPercent   = "Eres un evaluador que responde solo con un número del 0 al 100."
	systemRiskScore = "Eres un experto en evaluación de riesgos ISO 9001. Devuelve dos números entre 1 y 5 separados por coma."
)

const realCasePrompt = `Proporcióname un caso de estudio real y diferente de una empresa conocida que haya implementado la norma ISO 9001.
Cada vez que se te solicite, elige una empresa distinta que opere en un país y sector diferentes. Describe el nombre de la empresa, el sector en el que opera, los problemas que enfrentaba antes de certificarse, los cambios que aplicó para cumplir con la norma y los beneficios obtenidos luego de su certificación.`

// realCaseTriggers are phrases that turn a chat message into a request for
// a real-company case study.
var realCaseTriggers = []string{
	"dame un caso de estudio",
	"caso de empresa real",
	"quiero un caso real",
	"proporcióname un caso de estudio",
}

func wantsRealCase(message string) bool {
	lower := strings.ToLower(message)
	for _, t := range realCaseTriggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func generatePrompt(f model.GenerationFilter) string {
	return fmt.Sprintf(`Proporcióname un caso de estudio realista sobre una empresa que implementó la norma ISO 9001.
Filtros:
- País: %s
- Sector o área de actividad: %s
- Tipo de empresa: %s
- Tamaño de empresa: %s

Describe:
1. Nombre ficticio de la empresa.
2. Problemas que enfrentaba antes de certificarse.
3. Acciones implementadas para cumplir con ISO 9001.
4. Beneficios obtenidos tras la certificación.`, f.Country, f.Sector, f.CompanyType, f.CompanySize)
}

func summaryPrompt(ai, user string) string {
	return fmt.Sprintf(`Actúa como un auditor experto en la norma ISO 9001.
📘 Análisis del chatbot:
%s
🧑‍💼 Análisis del usuario:
%s
Compara ambos. Evalúa si están alineados, si uno es más detallado o completo, si hay contradicciones, y redacta un párrafo resumen.`, ai, user)
}

func percentPrompt(ai, user string) string {
	return fmt.Sprintf(`Eres un evaluador experto en auditorías ISO 9001. Compara la respuesta del usuario con la del chatbot.
Evalúa cuán alineado está el análisis del usuario. Devuelve solo un porcentaje entero del 0 al 100 seguido del símbolo %%.
Respuesta del chatbot:
%s
🧑‍💼 Análisis del usuario:
%s`, ai, user)
}

func riskPrompt(ai, user string) string {
	return fmt.Sprintf(`Evalúa el análisis del usuario comparado con la respuesta del chatbot ISO 9001.
Devuelve solo dos valores enteros entre 1 y 5 separados por coma: impacto,probabilidad.
📘 Respuesta del chatbot:
%s
🧑‍💼 Análisis del usuario:
%s`, ai, user)
}
