package entity

// Param is one name=value pair of the outbound gateway request.
type Param struct {
	Name  string `json:"name" bson:"name"`
	Value string `json:"value" bson:"value"`
}

// RequestParams is the ordered parameter set posted to the hosted payment
// page. Field order is part of the signed contract, so this is an explicit
// list of pairs and never a map.
type RequestParams struct {
	Params []Param `json:"params" bson:"params"`
}

// Add appends a parameter, preserving insertion order.
func (p *RequestParams) Add(name, value string) {
	p.Params = append(p.Params, Param{Name: name, Value: value})
}

// Get returns the value of the first parameter with the given name, or an
// empty string when absent.
func (p *RequestParams) Get(name string) string {
	for _, param := range p.Params {
		if param.Name == name {
			return param.Value
		}
	}
	return ""
}

// Len returns the number of parameters.
func (p *RequestParams) Len() int {
	return len(p.Params)
}
