// Package classifier maps incoming fiscal document filenames to an
// obligation category and an accounting period. All functions are pure:
// they look only at the filename (and, for the period, a reference
// date), never at the document content.
package classifier

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/taxbasehub/fiscal-audit/dto"
)

// blacklist holds filename markers of documents the audit must never
// ingest (invoices, boletos, payroll, contracts...). Checked before any
// extraction cost is paid.
var blacklist = []string{
	// Notas fiscais (entrada/saída)
	"NOTA FISCAL", "NF-E", "NFE", "NFS-E", "NFSE", "DANFE",
	"NOTA DE ENTRADA", "NOTA DE SAIDA", "NOTA DE SAÍDA",
	"NF ENTRADA", "NF SAIDA", "NF SAÍDA",
	"NOTA SERVICO", "NOTA SERVIÇO",
	// Boletos e pagamentos
	"BOLETO", "FATURA", "DUPLICATA", "COBRANCA", "COBRANÇA",
	// Comprovantes genéricos
	"COMPROVANTE DE PAGAMENTO", "COMPROVANTE PAGTO",
	"COMPROVANTE DE ENDERECO", "COMPROVANTE DE ENDEREÇO",
	// Contratos e documentos societários
	"CONTRATO", "PROCURACAO", "PROCURAÇÃO", "ALVARA", "ALVARÁ",
	// Extratos
	"EXTRATO BANCARIO", "EXTRATO BANCÁRIO",
	// Certidões
	"CERTIDAO", "CERTIDÃO", "CND ",
	// Contabilidade
	"BALANCETE", "BALANCO", "BALANÇO", "DRE ",
	// Departamento pessoal
	"FOLHA DE PAGAMENTO", "HOLERITE", "CONTRA CHEQUE", "CONTRACHEQUE",
	"RESCISAO", "RESCISÃO", "FERIAS", "FÉRIAS",
	// Outros irrelevantes
	"RECIBO DE ALUGUEL",
	"XML ",
	"NFS ",
	"TERMO DE INDEFERIMENTO", "INDEFERIMENTO",
	"MEMORIA DE CALCULO", "MEMÓRIA DE CÁLCULO",
	"RESUMO DE ENTRADAS", "RESUMO DE SAIDAS", "RESUMO DE SAÍDAS",
}

// CategoryRule binds one obligation category to its filename keywords.
type CategoryRule struct {
	Category string
	Keywords []string
}

// categories is the classification table. The slice order is a
// contract: the first category whose any keyword occurs in the
// filename wins, so categories with more specific tokens come before
// categories whose tokens are substrings of them.
var categories = []CategoryRule{
	{"ISS", []string{"ISS PRESTADO", "ISS PRESTADOS", "ISS TOMADO", "ISS TOMADOS",
		"GUIA ISS", "ISS RETIDO", "ISS"}},
	{"EFD_CONTRIBUICOES", []string{"EFD CONTRIBUIÇÕES", "EFD CONTRIBUICOES", "EFD CONTRI",
		"EFD CONTR", "EFD CONTRIB",
		"SPED CONTRIBUICOES", "SPED CONTRIBUIÇÕES",
		"SPED CONTR", "SPED CONTRIB",
		"PIS COFINS EFD",
		"RECIBO CONTRI", "RECIBO CONTRIBUIÇÕES", "RECIBO CONTRIBUICOES"}},
	{"REINF", []string{"EFD REINF", "REINF"}},
	{"IRRF", []string{"IRRF", "EFD IRRF", "DARF IRRF"}},
	{"GUIA_ICMS", []string{"GUIA ICMS", "GARE ICMS", "DARE ICMS", "GARE-ICMS", "DARE-ICMS"}},
	{"SIMPLES_NACIONAL", []string{"SIMPLES NACIONAL", "DAS SIMPLES", "PGDAS-D", "PGDAS",
		"DEFIS", "DAS ", "SIMPLES"}},
	{"SPED_ICMS", []string{"SPED ICMS", "EFD ICMS IPI", "EFD ICMS", "SPED FISCAL",
		"RECIBO ICMS", "RECIBO SPED", "SPED"}},
	{"GIA_ICMS", []string{"GIA ICMS", "GIA ST", "GIA SP", "NOVA GIA", "GIA"}},
	{"DIRB", []string{"DIRB"}},
	{"IPI", []string{"APURACAO IPI", "APURAÇÃO IPI", "IPI"}},
	{"PIS_COFINS", []string{"PIS COFINS", "PIS E COFINS", "PIS-COFINS", "PIS - COFINS",
		"DARF PIS", "DARF COFINS", "PIS", "COFINS"}},
	{"PARCELAMENTO", []string{"PARCELAMENTO", "REPARCELAMENTO", "PARCSN", "REFIS",
		"PARCELA", "PARC.", "PARC "}},
	{"ICMS_ST", []string{"ICMS ST", "SUBSTITUICAO TRIBUTARIA", "SUBSTITUIÇÃO TRIBUTÁRIA"}},
	{"ICMS_DIFAL", []string{"ICMS DIFAL", "DIFERENCIAL DE ALIQUOTA", "DIFERENCIAL DE ALÍQUOTA"}},
	{"IRPJ_CSLL", []string{"IRPJ E CSLL", "IRPJ_CSLL", "DARF IRPJ", "DARF CSLL",
		"IRPJ", "CSLL", "ECF ", "LALUR"}},
	{"MIT", []string{"MIT"}},
	{"DCTFWEB", []string{"DCTFWEB", "DCTF WEB", "DCTF-WEB", "DCTFW", "DCTF"}},
	{"DSTDA", []string{"DSTDA", "DS-TDA", "DESTDA"}},
	{"INSS", []string{"GUIA INSS", "DARF INSS", "GPS ", "INSS"}},
	{"FGTS", []string{"GFIP", "SEFIP", "GRF ", "FGTS"}},
	{"IPTU", []string{"IPTU"}},
	{"TAXA_LICENCA", []string{"TAXA DE LICENÇA", "TAXA DE LICENCA", "TAXA LICENCA",
		"TAXA DE FISCALIZACAO", "TAXA DE FISCALIZAÇÃO", "TFE", "TFF"}},
	{"IRPF", []string{"DARF IRPF", "IRPF"}},
	{"ITR", []string{"DARF ITR", "ITR"}},
}

// periodPattern matches an explicit MM.YYYY / MM-YYYY / MM_YYYY token
// (month 01-12, year 2020-2099) embedded in a filename.
var periodPattern = regexp.MustCompile(`(0[1-9]|1[0-2])[.\-_](20[2-9][0-9])`)

// Classifier applies the blacklist and category rules. It carries no
// state beyond the fixed tables; a zero value is not usable, construct
// it with New.
type Classifier struct {
	blacklist []string
	rules     []CategoryRule
}

func New() *Classifier {
	return &Classifier{blacklist: blacklist, rules: categories}
}

// nameBody uppercases the filename and drops the extension, so that
// ".pdf" never produces a keyword hit.
func nameBody(fileName string) string {
	upper := strings.ToUpper(fileName)
	if idx := strings.LastIndex(upper, "."); idx >= 0 {
		return upper[:idx]
	}
	return upper
}

// IsBlacklisted reports whether the file must be skipped entirely,
// before any extraction is attempted.
func (c *Classifier) IsBlacklisted(fileName string) bool {
	body := nameBody(fileName)
	for _, term := range c.blacklist {
		if strings.Contains(body, term) {
			return true
		}
	}
	return false
}

// IdentifyCategory returns the first category in priority order whose
// any keyword occurs in the filename, or CategoryNotIdentified.
func (c *Classifier) IdentifyCategory(fileName string) string {
	body := nameBody(fileName)
	for _, rule := range c.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(body, keyword) {
				return rule.Category
			}
		}
	}
	return dto.CategoryNotIdentified
}

// CalculatePeriod resolves the accounting period "MM/YYYY" for a file.
// An explicit MM.YYYY token in the filename is authoritative. Otherwise
// the period is today minus N months truncated to month granularity:
// N=2 for EFD_CONTRIBUICOES, N=1 for everything else (obligations are
// filed with a one-or-two-month lag relative to the reference period).
func (c *Classifier) CalculatePeriod(fileName, category string, today time.Time) (string, dto.PeriodSource) {
	if m := periodPattern.FindStringSubmatch(fileName); m != nil {
		return fmt.Sprintf("%s/%s", m[1], m[2]), dto.PeriodFromFilename
	}

	monthsBack := 1
	if category == "EFD_CONTRIBUICOES" {
		monthsBack = 2
	}

	// Truncate to the first of the month before subtracting so that
	// month-end dates cannot roll over.
	ref := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	target := ref.AddDate(0, -monthsBack, 0)
	return target.Format("01/2006"), dto.PeriodComputed
}
