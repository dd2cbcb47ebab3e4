package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codex-k8s/pocketbase-mcp-server/internal/constants"
	"github.com/codex-k8s/pocketbase-mcp-server/internal/pocketbase"
)

// autodateFields are appended to the fields of every created collection.
var autodateFields = []any{
	map[string]any{
		"hidden":      false,
		"id":          "autodate_created",
		"name":        "created",
		"onCreate":    true,
		"onUpdate":    false,
		"presentable": false,
		"system":      false,
		"type":        "autodate",
	},
	map[string]any{
		"hidden":      false,
		"id":          "autodate_updated",
		"name":        "updated",
		"onCreate":    true,
		"onUpdate":    true,
		"presentable": false,
		"system":      false,
		"type":        "autodate",
	},
}

func jsonResult(raw json.RawMessage, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return renderJSON(raw)
}

func collectionArg(args map[string]any) string {
	return stringArgOr(args, "collection", constants.DefaultAuthCollection)
}

func createCollection(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	body := without(args)
	fields := append([]any{}, sliceArg(args, "fields")...)
	body["fields"] = append(fields, autodateFields...)
	return jsonResult(d.client.CreateCollection(ctx, body))
}

func updateCollection(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	id := stringArg(args, "collectionIdOrName")
	return jsonResult(d.client.UpdateCollection(ctx, id, without(args, "collectionIdOrName")))
}

func getCollection(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	return jsonResult(d.client.GetCollection(ctx, stringArg(args, "collectionIdOrName"), stringArg(args, "fields")))
}

func listCollections(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	if filter := stringArg(args, "filter"); filter != "" {
		return jsonResult(d.client.FirstCollection(ctx, filter))
	}
	if sort := stringArg(args, "sort"); sort != "" {
		return jsonResult(d.client.FullCollectionList(ctx, sort))
	}
	return jsonResult(d.client.ListCollections(ctx, pocketbase.ListOptions{Page: 1, PerPage: 100}))
}

func deleteCollection(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	id := stringArg(args, "collectionIdOrName")
	if err := d.client.DeleteCollection(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully deleted collection %s", id), nil
}

func createRecord(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	return jsonResult(d.client.CreateRecord(ctx, stringArg(args, "collection"), mapArg(args, "data")))
}

func listRecords(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	page, err := intArg(args, "page", 1)
	if err != nil {
		return "", err
	}
	perPage, err := intArg(args, "perPage", 50)
	if err != nil {
		return "", err
	}
	opts := pocketbase.ListOptions{
		Page:    page,
		PerPage: perPage,
		Filter:  stringArg(args, "filter"),
		Sort:    stringArg(args, "sort"),
	}
	return jsonResult(d.client.ListRecords(ctx, stringArg(args, "collection"), opts))
}

func updateRecord(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	return jsonResult(d.client.UpdateRecord(ctx, stringArg(args, "collection"), stringArg(args, "id"), mapArg(args, "data")))
}

func deleteRecord(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	collection, id := stringArg(args, "collection"), stringArg(args, "id")
	if err := d.client.DeleteRecord(ctx, collection, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully deleted record %s from collection %s", id, collection), nil
}

// importData writes items one at a time and stops at the first failure.
func importData(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	collection := stringArg(args, "collection")
	mode := stringArgOr(args, "mode", constants.ImportCreate)
	items := sliceArg(args, "data")

	results := make([]json.RawMessage, 0, len(items))
	for i, item := range items {
		data, ok := item.(map[string]any)
		if !ok {
			return "", fmt.Errorf("item %d is not an object", i)
		}
		raw, err := importItem(ctx, d.client, collection, mode, data)
		if err != nil {
			return "", err
		}
		results = append(results, raw)
	}
	out, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	return renderJSON(out)
}

func importItem(ctx context.Context, client *pocketbase.Client, collection, mode string, data map[string]any) (json.RawMessage, error) {
	id := stringArg(data, "id")
	switch mode {
	case constants.ImportCreate:
		return client.CreateRecord(ctx, collection, data)
	case constants.ImportUpdate:
		if id == "" {
			return nil, errors.New("update mode requires an id on every item")
		}
		return client.UpdateRecord(ctx, collection, id, without(data, "id"))
	case constants.ImportUpsert:
		if id == "" {
			return client.CreateRecord(ctx, collection, data)
		}
		raw, err := client.UpdateRecord(ctx, collection, id, without(data, "id"))
		if pocketbase.IsNotFound(err) {
			return client.CreateRecord(ctx, collection, data)
		}
		return raw, err
	default:
		return nil, fmt.Errorf("unsupported import mode %q", mode)
	}
}

func listAuthMethods(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	return jsonResult(d.client.ListAuthMethods(ctx, collectionArg(args)))
}

func authenticateUser(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	collection := collectionArg(args)
	email, password := stringArg(args, "email"), stringArg(args, "password")
	if boolArg(args, "isAdmin") {
		collection = constants.SuperusersCollection
		if email == "" {
			email = d.admin.Email
		}
		if password == "" {
			password = d.admin.Password
		}
	}
	if email == "" || password == "" {
		return "", errors.New("Email and password are required for authentication")
	}
	return jsonResult(d.client.AuthWithPassword(ctx, collection, email, password))
}

func authenticateWithOAuth2(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	req := pocketbase.OAuth2Request{
		Provider:     stringArg(args, "provider"),
		Code:         stringArg(args, "code"),
		CodeVerifier: stringArg(args, "codeVerifier"),
		RedirectURL:  stringArg(args, "redirectUrl"),
	}
	return jsonResult(d.client.AuthWithOAuth2Code(ctx, collectionArg(args), req))
}

func authenticateWithOTP(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	return jsonResult(d.client.RequestOTP(ctx, collectionArg(args), stringArg(args, "email")))
}

func authRefresh(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	return jsonResult(d.client.AuthRefresh(ctx, collectionArg(args)))
}

func requestVerification(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	email := stringArg(args, "email")
	if err := d.client.RequestVerification(ctx, collectionArg(args), email); err != nil {
		return "", err
	}
	return fmt.Sprintf("Verification email sent to %s", email), nil
}

func confirmVerification(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	if err := d.client.ConfirmVerification(ctx, collectionArg(args), stringArg(args, "token")); err != nil {
		return "", err
	}
	return "Email verified", nil
}

func requestPasswordReset(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	email := stringArg(args, "email")
	if err := d.client.RequestPasswordReset(ctx, collectionArg(args), email); err != nil {
		return "", err
	}
	return fmt.Sprintf("Password reset email sent to %s", email), nil
}

func confirmPasswordReset(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	err := d.client.ConfirmPasswordReset(ctx, collectionArg(args),
		stringArg(args, "token"), stringArg(args, "password"), stringArg(args, "passwordConfirm"))
	if err != nil {
		return "", err
	}
	return "Password reset confirmed", nil
}

func requestEmailChange(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	newEmail := stringArg(args, "newEmail")
	if err := d.client.RequestEmailChange(ctx, collectionArg(args), newEmail); err != nil {
		return "", err
	}
	return fmt.Sprintf("Email change requested for %s", newEmail), nil
}

func confirmEmailChange(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	err := d.client.ConfirmEmailChange(ctx, collectionArg(args), stringArg(args, "token"), stringArg(args, "password"))
	if err != nil {
		return "", err
	}
	return "Email change confirmed", nil
}

func impersonateUser(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	collection := stringArgOr(args, "collectionIdOrName", constants.DefaultAuthCollection)
	duration, err := intArg(args, "duration", constants.DefaultImpersonateDuration)
	if err != nil {
		return "", err
	}
	return jsonResult(d.client.Impersonate(ctx, collection, stringArg(args, "id"), duration))
}

func createUser(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	data := map[string]any{
		"email":           stringArg(args, "email"),
		"password":        stringArg(args, "password"),
		"passwordConfirm": stringArg(args, "passwordConfirm"),
	}
	if name, ok := args["name"]; ok {
		data["name"] = name
	}
	return jsonResult(d.client.CreateRecord(ctx, collectionArg(args), data))
}

// backupDatabase reports the requested name since the backend reply is empty.
func backupDatabase(ctx context.Context, d *Dispatcher, args map[string]any) (string, error) {
	name := stringArg(args, "name")
	if err := d.client.CreateBackup(ctx, name); err != nil {
		return "", err
	}
	out, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return "", fmt.Errorf("encode backup result: %w", err)
	}
	return renderJSON(out)
}
