package entity

// Source identifica a origem de um snapshot.
// Name compõe as chaves dos relatórios (zoho_record, mongo_value), Title as mensagens.
type Source struct {
	Name  string
	Title string
}

var (
	SourceCRM      = Source{Name: "zoho", Title: "Zoho CRM"}
	SourceMongo    = Source{Name: "mongo", Title: "MongoDB"}
	SourcePostgres = Source{Name: "postgres", Title: "PostgreSQL"}
)

// Snapshot é o dump JSON de uma fonte, guardado como um único objeto.
type Snapshot struct {
	Source Source
	Key    string
	Leads  []Lead
}

func (s Snapshot) Count() int {
	return len(s.Leads)
}
