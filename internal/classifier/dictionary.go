package classifier

// Entry maps a category name to the keywords that select it
type Entry struct {
	Category string
	Keywords []string
}

// Dictionary is an ordered keyword table. The first entry with a matching
// keyword wins, so more specific categories come first.
type Dictionary []Entry

// DefaultExpenses is the built-in bilingual (pt-BR / en) expense dictionary.
// Keywords are compared accent-insensitively.
var DefaultExpenses = Dictionary{
	{Category: "Alimentação", Keywords: []string{
		"ifd*", "ifood", "uber eats", "rappi", "restaurante", "lanchonete", "padaria", "pizzaria",
		"hamburgueria", "burger", "mcdonald", "starbucks", "cafeteria", "coffee", "restaurant", "bakery",
	}},
	{Category: "Compras", Keywords: []string{
		"amazon", "mercado livre", "mercadolivre", "mercadopago*ml", "shopee", "magazine luiza", "magalu",
		"aliexpress", "americanas", "shein", "renner", "shopping", "store",
	}},
	{Category: "Mercado", Keywords: []string{
		"supermercado", "mercado", "carrefour", "pao de acucar", "assai", "atacadao", "hortifruti",
		"grocery", "supermarket",
	}},
	{Category: "Transporte", Keywords: []string{
		"uber", "99app", "99 pop", "99pop", "cabify", "taxi", "auto posto", "combustivel", "ipiranga",
		"estacionamento", "sem parar", "pedagio", "metro", "onibus", "gas station", "parking", "fuel",
	}},
	{Category: "Moradia", Keywords: []string{
		"aluguel", "condominio", "energia", "enel", "cemig", "sabesp", "copasa", "conta de agua",
		"internet", "vivo fibra", "claro net", "electricity", "water bill",
	}},
	{Category: "Saúde", Keywords: []string{
		"farmacia", "drogaria", "drogasil", "droga raia", "hospital", "clinica", "laboratorio",
		"medico", "dentista", "unimed", "pharmacy", "doctor", "dental",
	}},
	{Category: "Educação", Keywords: []string{
		"escola", "faculdade", "universidade", "mensalidade", "curso", "livraria", "udemy", "alura",
		"school", "tuition", "bookstore",
	}},
	{Category: "Lazer", Keywords: []string{
		"netflix", "spotify", "cinema", "ingresso", "steam", "playstation", "disney", "hbo",
		"prime video", "youtube", "teatro", "theater",
	}},
	{Category: "Impostos e Taxas", Keywords: []string{
		"iof", "tarifa", "taxa", "imposto", "iptu", "ipva", "anuidade", "juros", "multa", "tax",
	}},
	{Category: "Transferências", Keywords: []string{
		"pix enviado", "pix", "transferencia", "transf", "ted enviada", "doc enviado", "transfer",
	}},
}

// DefaultIncomes is the built-in bilingual (pt-BR / en) income dictionary
var DefaultIncomes = Dictionary{
	{Category: "Salário", Keywords: []string{
		"salario", "sispag", "folha de pagamento", "proventos", "adiantamento salarial", "salary", "payroll",
	}},
	{Category: "Investimentos", Keywords: []string{
		"rendimento", "dividendo", "juros sobre capital", "resgate", "cdb", "tesouro", "dividend", "interest",
	}},
	{Category: "Reembolso", Keywords: []string{
		"reembolso", "estorno", "devolucao", "cashback", "refund",
	}},
	{Category: "Freelance", Keywords: []string{
		"freelance", "honorarios", "nota fiscal", "invoice",
	}},
	{Category: "Transferências", Keywords: []string{
		"pix recebido", "pix", "transferencia", "transf", "ted recebida", "deposito", "transfer",
	}},
}
