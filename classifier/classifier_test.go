package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/taxbasehub/fiscal-audit/dto"
)

func TestIsBlacklisted(t *testing.T) {
	c := New()

	blocked := []string{
		"DANFE NF 123456.pdf",
		"Nota Fiscal Eletronica - Empresa ABC.pdf",
		"NFe 35210298765432100012345.pdf",
		"NFS-e São Paulo.pdf",
		"Boleto Banco Itau Fev2026.pdf",
		"Fatura Energia Eletrica.pdf",
		"Comprovante de Pagamento DARF.pdf",
		"Contrato Social Consolidado.pdf",
		"Procuração Eletrônica.pdf",
		"Extrato Bancário Janeiro.pdf",
		"Certidão Negativa de Débitos.pdf",
		"Balancete Mensal 01.2026.pdf",
		"Folha de Pagamento Janeiro.pdf",
		"Holerite Funcionario.pdf",
		"Rescisão Contrato Trabalho.pdf",
		"Férias Funcionário João.pdf",
		"Recibo de Aluguel Janeiro.pdf",
		"Duplicata Vencida.pdf",
		"Alvará de Funcionamento.pdf",
	}
	for _, name := range blocked {
		assert.True(t, c.IsBlacklisted(name), "expected blacklisted: %s", name)
	}

	allowed := []string{
		"Recibo EFD Contribuicoes 01.2026.pdf",
		"GUIA ISS Janeiro.pdf",
		"DCTFWEB 02.2026.pdf",
		"arquivo qualquer.pdf",
	}
	for _, name := range allowed {
		assert.False(t, c.IsBlacklisted(name), "expected not blacklisted: %s", name)
	}
}

// The blacklist wins even when the name also carries category keywords.
func TestBlacklistPrecedesCategories(t *testing.T) {
	c := New()
	name := "Boleto DARF PIS Janeiro.pdf"
	assert.True(t, c.IsBlacklisted(name))
	assert.Equal(t, "PIS_COFINS", c.IdentifyCategory(name))
}

func TestIdentifyCategory(t *testing.T) {
	c := New()

	cases := []struct {
		name     string
		expected string
	}{
		{"Recibo EFD Contribuicoes 01.2026.pdf", "EFD_CONTRIBUICOES"},
		{"EFD Contri Empresa ABC.pdf", "EFD_CONTRIBUICOES"},
		{"Sped Contribuições Dez.pdf", "EFD_CONTRIBUICOES"},
		{"GUIA ISS Janeiro.pdf", "ISS"},
		{"ISS Tomado 01.2026.pdf", "ISS"},
		{"EFD REINF Fev.pdf", "REINF"},
		{"DARF IRRF 01.2026.pdf", "IRRF"},
		{"GARE ICMS Janeiro.pdf", "GUIA_ICMS"},
		{"DARE-ICMS 01.2026.pdf", "GUIA_ICMS"},
		{"PGDAS-D Janeiro.pdf", "SIMPLES_NACIONAL"},
		{"DAS Simples Nacional.pdf", "SIMPLES_NACIONAL"},
		{"DEFIS 2025.pdf", "SIMPLES_NACIONAL"},
		{"SPED FISCAL 01.2026.pdf", "SPED_ICMS"},
		{"EFD ICMS IPI Janeiro.pdf", "SPED_ICMS"},
		{"Recibo SPED Fev.pdf", "SPED_ICMS"},
		{"GIA SP Janeiro.pdf", "GIA_ICMS"},
		{"NOVA GIA 01.2026.pdf", "GIA_ICMS"},
		{"DARF PIS Janeiro.pdf", "PIS_COFINS"},
		{"DARF COFINS 01.2026.pdf", "PIS_COFINS"},
		{"Reparcelamento Empresa X.pdf", "PARCELAMENTO"},
		{"DCTF WEB Fev.pdf", "DCTFWEB"},
		{"DCTF-WEB 01.2026.pdf", "DCTFWEB"},
		{"DARF INSS Janeiro.pdf", "INSS"},
		{"GPS Empresa ABC.pdf", "INSS"},
		{"Guia INSS 01.2026.pdf", "INSS"},
		{"GFIP Janeiro.pdf", "FGTS"},
		{"SEFIP 01.2026.pdf", "FGTS"},
		{"FGTS Empresa.pdf", "FGTS"},
		{"IPTU 2026.pdf", "IPTU"},
		{"TFE São Paulo.pdf", "TAXA_LICENCA"},
		{"Taxa de Licença 2026.pdf", "TAXA_LICENCA"},
		{"DARF IRPF Janeiro.pdf", "IRPF"},
		{"IRPF 2025.pdf", "IRPF"},
		{"DARF ITR 2025.pdf", "ITR"},
		{"ITR Fazenda.pdf", "ITR"},
		{"Relatorio Gerencial.pdf", dto.CategoryNotIdentified},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expected, c.IdentifyCategory(tc.name), "file: %s", tc.name)
	}
}

// When a name carries keywords of two categories, the category earlier
// in the priority table always wins.
func TestCategoryOrderDeterminism(t *testing.T) {
	c := New()

	// ISS precedes PIS_COFINS.
	assert.Equal(t, "ISS", c.IdentifyCategory("Guia ISS e PIS Janeiro.pdf"))
	// EFD_CONTRIBUICOES precedes PIS_COFINS even though PIS appears.
	assert.Equal(t, "EFD_CONTRIBUICOES", c.IdentifyCategory("PIS COFINS EFD 01.2026.pdf"))
	// REINF precedes IRRF.
	assert.Equal(t, "REINF", c.IdentifyCategory("REINF IRRF Fev.pdf"))
	// SPED_ICMS precedes GIA_ICMS.
	assert.Equal(t, "SPED_ICMS", c.IdentifyCategory("SPED ICMS GIA 01.2026.pdf"))
}

func TestCalculatePeriodFromFilename(t *testing.T) {
	c := New()
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	for _, name := range []string{
		"Recibo 01.2026.pdf",
		"Recibo 01-2026.pdf",
		"Recibo 01_2026.pdf",
	} {
		period, source := c.CalculatePeriod(name, "EFD_CONTRIBUICOES", today)
		assert.Equal(t, "01/2026", period, "file: %s", name)
		assert.Equal(t, dto.PeriodFromFilename, source)
	}

	// The embedded date wins regardless of category.
	period, source := c.CalculatePeriod("DCTFWEB 01.2026.pdf", "DCTFWEB", today)
	assert.Equal(t, "01/2026", period)
	assert.Equal(t, dto.PeriodFromFilename, source)

	// Month 13 and year 2019 are not period tokens.
	period, source = c.CalculatePeriod("Recibo 13.2026.pdf", "DCTFWEB", today)
	assert.Equal(t, dto.PeriodComputed, source)
	assert.Equal(t, "02/2026", period)
	_, source = c.CalculatePeriod("Recibo 01.2019.pdf", "DCTFWEB", today)
	assert.Equal(t, dto.PeriodComputed, source)
}

func TestCalculatePeriodComputed(t *testing.T) {
	c := New()
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	// EFD_CONTRIBUICOES lags two months.
	period, source := c.CalculatePeriod("Recibo EFD Contribuicoes.pdf", "EFD_CONTRIBUICOES", today)
	assert.Equal(t, "01/2026", period)
	assert.Equal(t, dto.PeriodComputed, source)

	// Everything else lags one month.
	period, _ = c.CalculatePeriod("DCTFWEB entrega.pdf", "DCTFWEB", today)
	assert.Equal(t, "02/2026", period)

	// Year boundary.
	january := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	period, _ = c.CalculatePeriod("GUIA ISS.pdf", "ISS", january)
	assert.Equal(t, "12/2025", period)
	period, _ = c.CalculatePeriod("EFD Contrib.pdf", "EFD_CONTRIBUICOES", january)
	assert.Equal(t, "11/2025", period)

	// Month-end dates must not roll over.
	endOfMarch := time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)
	period, _ = c.CalculatePeriod("GUIA ISS.pdf", "ISS", endOfMarch)
	assert.Equal(t, "02/2026", period)
}
