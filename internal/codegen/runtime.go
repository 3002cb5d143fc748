package codegen

// Source text shared by every generated file. The emitter adds these after
// the workflow-specific functions.

const stateSource = `
// workflowState holds the values one orchestration produces.
type workflowState struct {
	Outputs       map[string]any
	Parameters    map[string]any
	Variables     map[string]any
	VariableTypes map[string]string

	guids int
}

func (s *workflowState) declare(name, typ string, value any) {
	s.Variables[name] = value
	s.VariableTypes[name] = typ
}

func (s *workflowState) declareJSON(name, typ, text string) error {
	value, err := parseJSON(text)
	if err != nil {
		return err
	}
	if value, err = convertVariable(name, typ, value); err != nil {
		return err
	}
	s.declare(name, typ, value)
	return nil
}

func (s *workflowState) variable(name string) map[string]any {
	return map[string]any{"name": name, "type": s.VariableTypes[name], "value": s.Variables[name]}
}

func (s *workflowState) add(name string, delta any, sign int64) error {
	typ, ok := s.VariableTypes[name]
	if !ok {
		return fmt.Errorf("couldn't find any variable named '%s'", name)
	}
	switch current := s.Variables[name].(type) {
	case int64:
		d, ok := delta.(int64)
		if f, isFloat := delta.(float64); isFloat && f == float64(int64(f)) {
			d, ok = int64(f), true
		}
		if !ok {
			return fmt.Errorf("variable '%s' of type %s cannot change by %v", name, typ, delta)
		}
		s.Variables[name] = current + sign*d
	case float64:
		var d float64
		switch v := delta.(type) {
		case int64:
			d = float64(v)
		case float64:
			d = v
		default:
			return fmt.Errorf("variable '%s' of type %s cannot change by %v", name, typ, delta)
		}
		s.Variables[name] = current + float64(sign)*d
	default:
		return fmt.Errorf("variable '%s' of type %s is not numeric", name, typ)
	}
	return nil
}

func (s *workflowState) addJSON(name, text string, sign int64) error {
	delta, err := parseJSON(text)
	if err != nil {
		return err
	}
	return s.add(name, delta, sign)
}

func (s *workflowState) assign(name string, value any) error {
	typ, ok := s.VariableTypes[name]
	if !ok {
		return fmt.Errorf("couldn't find any variable named '%s'", name)
	}
	value, err := convertVariable(name, typ, value)
	if err != nil {
		return err
	}
	s.Variables[name] = value
	return nil
}

func (s *workflowState) assignJSON(name, text string) error {
	value, err := parseJSON(text)
	if err != nil {
		return err
	}
	return s.assign(name, value)
}

// guid derives an identifier from the instance ID and a per-run sequence
// number, so a replay produces the same values.
func (s *workflowState) guid(ctx *task.OrchestrationContext) string {
	s.guids++
	seed := fmt.Sprintf("%s/%d", ctx.ID, s.guids)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}
`

const helpersSource = `
func utcNow(ctx *task.OrchestrationContext) string {
	return ctx.CurrentTimeUtc.UTC().Format("2006-01-02T15:04:05.0000000Z")
}

var uriComponentReplacer = strings.NewReplacer("+", "%20", "%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*")

func encodeURIComponent(v any) string {
	return uriComponentReplacer.Replace(url.QueryEscape(toText(v)))
}

func base64(v any) string {
	return stdbase64.StdEncoding.EncodeToString([]byte(toText(v)))
}

func toJSON(v any) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func toJSONFragment(v any) string {
	s := toJSON(toText(v))
	return s[1 : len(s)-1]
}

func toText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	return toJSON(v)
}

func parseJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse %q: %w", text, err)
	}
	return normalizeJSON(v), nil
}

func parseJSONContent(text string) (any, error) {
	v, err := parseJSON(text)
	if err != nil {
		return nil, err
	}
	if s, ok := v.(string); ok {
		return parseJSON(s)
	}
	return v, nil
}

func normalizeJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case []any:
		for i := range val {
			val[i] = normalizeJSON(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalizeJSON(val[k])
		}
		return val
	}
	return v
}

func convertVariable(name, typ string, v any) (any, error) {
	if v == nil {
		switch typ {
		case "String":
			return "", nil
		case "Integer":
			return int64(0), nil
		case "Float":
			return float64(0), nil
		case "Boolean":
			return false, nil
		case "Array":
			return []any{}, nil
		case "Object":
			return map[string]any{}, nil
		}
	}
	if s, ok := v.(string); ok && typ != "String" {
		parsed, err := parseJSON(s)
		if err != nil {
			return nil, fmt.Errorf("variable '%s' of type %s cannot hold %q", name, typ, s)
		}
		v = parsed
	}
	switch val := v.(type) {
	case string:
		if typ == "String" {
			return val, nil
		}
	case int64:
		if typ == "Integer" {
			return val, nil
		}
		if typ == "Float" {
			return float64(val), nil
		}
	case float64:
		if typ == "Float" {
			return val, nil
		}
	case bool:
		if typ == "Boolean" {
			return val, nil
		}
	case []any:
		if typ == "Array" {
			return val, nil
		}
	case map[string]any:
		if typ == "Object" {
			return val, nil
		}
	}
	return nil, fmt.Errorf("variable '%s' of type %s cannot hold %v", name, typ, v)
}
`

const triggerBodySource = `
func triggerBody(ctx *task.OrchestrationContext) any {
	var body any
	if err := ctx.GetInput(&body); err != nil {
		return nil
	}
	return normalizeJSON(body)
}
`

const httpSource = `
type httpRequest struct {
	Method  string
	URI     string
	Headers map[string]string
	Queries map[string]string
	Body    any
}

func callHTTP(ctx *task.OrchestrationContext, req httpRequest) (any, error) {
	var result map[string]any
	if err := ctx.CallActivity("CallHttp", task.WithActivityInput(req)).Await(&result); err != nil {
		return nil, err
	}
	return normalizeJSON(result), nil
}

// CallHttp performs a request on behalf of the orchestrator and returns
// {statusCode, headers, body}. A JSON response body is decoded.
func CallHttp(ctx task.ActivityContext) (any, error) {
	var req httpRequest
	if err := ctx.GetInput(&req); err != nil {
		return nil, err
	}

	uri, err := url.Parse(req.URI)
	if err != nil {
		return nil, err
	}
	if len(req.Queries) > 0 {
		query := uri.Query()
		for k, v := range req.Queries {
			query.Set(k, v)
		}
		uri.RawQuery = query.Encode()
	}

	var body io.Reader
	switch b := req.Body.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	default:
		body = strings.NewReader(toJSON(b))
	}

	httpReq, err := http.NewRequestWithContext(ctx.Context(), req.Method, uri.String(), body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]any, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	var content any = string(data)
	if len(data) > 0 {
		if parsed, err := parseJSON(string(data)); err == nil {
			content = parsed
		}
	}
	return map[string]any{"statusCode": resp.StatusCode, "headers": headers, "body": content}, nil
}
`
