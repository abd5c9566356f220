package locale

// phaseKeywords holds the search keyword appended to the prospect name when
// query generation has to fall back to a deterministic query.
var phaseKeywords = map[string]map[string]string{
	"en": {"company": "company news", "contacts": "leadership team", "contact_discovery": "management team", "market": "competitors market"},
	"de": {"company": "Unternehmen Neuigkeiten", "contacts": "Geschäftsführung", "contact_discovery": "Management Team", "market": "Wettbewerber Markt"},
	"fr": {"company": "entreprise actualités", "contacts": "équipe dirigeante", "contact_discovery": "direction", "market": "concurrents marché"},
	"es": {"company": "empresa noticias", "contacts": "equipo directivo", "contact_discovery": "dirección", "market": "competidores mercado"},
	"it": {"company": "azienda notizie", "contacts": "team dirigenziale", "contact_discovery": "direzione", "market": "concorrenti mercato"},
	"pt": {"company": "empresa notícias", "contacts": "equipe de liderança", "contact_discovery": "diretoria", "market": "concorrentes mercado"},
	"nl": {"company": "bedrijf nieuws", "contacts": "directie", "contact_discovery": "managementteam", "market": "concurrenten markt"},
	"sv": {"company": "företag nyheter", "contacts": "ledningsgrupp", "contact_discovery": "ledning", "market": "konkurrenter marknad"},
	"da": {"company": "virksomhed nyheder", "contacts": "ledelse", "contact_discovery": "direktion", "market": "konkurrenter marked"},
	"nb": {"company": "selskap nyheter", "contacts": "ledergruppe", "contact_discovery": "ledelse", "market": "konkurrenter marked"},
	"fi": {"company": "yritys uutiset", "contacts": "johtoryhmä", "contact_discovery": "johto", "market": "kilpailijat markkinat"},
	"pl": {"company": "firma aktualności", "contacts": "zarząd", "contact_discovery": "kadra kierownicza", "market": "konkurencja rynek"},
	"cs": {"company": "firma novinky", "contacts": "vedení společnosti", "contact_discovery": "management", "market": "konkurence trh"},
	"tr": {"company": "şirket haberleri", "contacts": "yönetim ekibi", "contact_discovery": "üst yönetim", "market": "rakipler pazar"},
	"ja": {"company": "会社 ニュース", "contacts": "経営陣", "contact_discovery": "役員", "market": "競合 市場"},
	"zh": {"company": "公司 新闻", "contacts": "管理团队", "contact_discovery": "高管", "market": "竞争对手 市场"},
	"ko": {"company": "회사 뉴스", "contacts": "경영진", "contact_discovery": "임원", "market": "경쟁사 시장"},
}

// Keyword returns the fallback search keyword for a phase in the given
// language, falling back to English for unknown languages or phases.
func Keyword(code, phase string) string {
	if kw, ok := phaseKeywords[code][phase]; ok {
		return kw
	}
	if kw, ok := phaseKeywords[English.Code][phase]; ok {
		return kw
	}
	return phaseKeywords[English.Code]["company"]
}
