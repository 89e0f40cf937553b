// Package cognito implements the identity directory port on an AWS Cognito
// user pool. Identity attributes map to pool attributes: the directory key is
// the Cognito username, the CPF and identity class travel as custom
// attributes. Cognito enforces username uniqueness natively; it offers no
// uniqueness constraint on email, which the orchestrator compensates for
// with a racy pre-check.
package cognito

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	"github.com/contaleve/identity-service/internal/core/domain"
)

const (
	attrName     = "name"
	attrEmail    = "email"
	attrCPF      = "custom:cpf"
	attrUserType = "custom:user_type"
)

type Directory struct {
	client     *cognitoidentityprovider.Client
	userPoolID string
	clientID   string
}

func NewDirectory(client *cognitoidentityprovider.Client, userPoolID, clientID string) *Directory {
	return &Directory{client: client, userPoolID: userPoolID, clientID: clientID}
}

func (d *Directory) Exists(ctx context.Context, key string) (bool, error) {
	_, err := d.client.AdminGetUser(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(key),
	})
	if err != nil {
		var nfe *types.UserNotFoundException
		if errors.As(err, &nfe) {
			return false, nil
		}
		return false, unavailable("admin get user", err)
	}
	return true, nil
}

func (d *Directory) FindByKey(ctx context.Context, key string) (*domain.Identity, error) {
	out, err := d.client.AdminGetUser(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(key),
	})
	if err != nil {
		var nfe *types.UserNotFoundException
		if errors.As(err, &nfe) {
			return nil, domain.ErrUserNotFound
		}
		return nil, unavailable("admin get user", err)
	}
	return mapIdentity(aws.ToString(out.Username), out.UserAttributes), nil
}

// FindByEmail uses the pool's ListUsers filter. The filter is a server-side
// prefix/equality match on a single attribute; one result is enough since
// the orchestrator only asks whether any identity holds the address.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	out, err := d.client.ListUsers(ctx, &cognitoidentityprovider.ListUsersInput{
		UserPoolId: aws.String(d.userPoolID),
		Filter:     aws.String(fmt.Sprintf("%q = %q", attrEmail, email)),
		Limit:      aws.Int32(1),
	})
	if err != nil {
		return nil, unavailable("list users", err)
	}
	for _, u := range out.Users {
		id := mapIdentity(aws.ToString(u.Username), u.Attributes)
		if id.Email == email {
			return id, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (d *Directory) Create(ctx context.Context, identity *domain.Identity, temporaryCredential string) (string, error) {
	attrs := []types.AttributeType{
		{Name: aws.String(attrName), Value: aws.String(identity.DisplayName)},
		{Name: aws.String(attrUserType), Value: aws.String(string(identity.Class))},
	}
	if identity.Email != "" {
		attrs = append(attrs,
			types.AttributeType{Name: aws.String(attrEmail), Value: aws.String(identity.Email)},
			types.AttributeType{Name: aws.String("email_verified"), Value: aws.String("true")},
		)
	}
	if identity.Class == domain.ClassAuthenticated {
		attrs = append(attrs, types.AttributeType{Name: aws.String(attrCPF), Value: aws.String(identity.Key)})
	}

	out, err := d.client.AdminCreateUser(ctx, &cognitoidentityprovider.AdminCreateUserInput{
		UserPoolId:        aws.String(d.userPoolID),
		Username:          aws.String(identity.Key),
		TemporaryPassword: aws.String(temporaryCredential),
		MessageAction:     types.MessageActionTypeSuppress,
		UserAttributes:    attrs,
	})
	if err != nil {
		var uee *types.UsernameExistsException
		if errors.As(err, &uee) {
			return "", domain.WrapError(domain.KindDuplicateIdentifier, "CPF already registered", err)
		}
		return "", unavailable("admin create user", err)
	}

	// The pool's own record identifier lives in the "sub" attribute.
	if out.User != nil {
		for _, a := range out.User.Attributes {
			if aws.ToString(a.Name) == "sub" {
				return aws.ToString(a.Value), nil
			}
		}
	}
	return identity.Key, nil
}

func (d *Directory) FinalizeCredential(ctx context.Context, key, permanentCredential string) error {
	_, err := d.client.AdminSetUserPassword(ctx, &cognitoidentityprovider.AdminSetUserPasswordInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(key),
		Password:   aws.String(permanentCredential),
		Permanent:  true,
	})
	if err != nil {
		var nfe *types.UserNotFoundException
		if errors.As(err, &nfe) {
			return domain.ErrUserNotFound
		}
		return unavailable("admin set user password", err)
	}
	return nil
}

func (d *Directory) Authenticate(ctx context.Context, key, credential string) (*domain.AuthTokens, error) {
	out, err := d.client.AdminInitiateAuth(ctx, &cognitoidentityprovider.AdminInitiateAuthInput{
		UserPoolId: aws.String(d.userPoolID),
		ClientId:   aws.String(d.clientID),
		AuthFlow:   types.AuthFlowTypeAdminUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": key,
			"PASSWORD": credential,
		},
	})
	if err != nil {
		var nfe *types.UserNotFoundException
		if errors.As(err, &nfe) {
			return nil, domain.ErrUserNotFound
		}
		var nae *types.NotAuthorizedException
		if errors.As(err, &nae) {
			return nil, domain.WrapError(domain.KindUnauthorized, "invalid credentials", err)
		}
		return nil, unavailable("admin initiate auth", err)
	}
	if out.AuthenticationResult == nil {
		return nil, domain.NewError(domain.KindDirectoryUnavailable, "authentication result is missing")
	}
	return &domain.AuthTokens{
		IDToken:      aws.ToString(out.AuthenticationResult.IdToken),
		RefreshToken: aws.ToString(out.AuthenticationResult.RefreshToken),
	}, nil
}

// unavailable wraps any unclassified Cognito failure, keeping the API error
// code in the diagnostic chain without exposing it to callers.
func unavailable(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		err = fmt.Errorf("%s (%s): %w", op, apiErr.ErrorCode(), err)
	} else {
		err = fmt.Errorf("%s: %w", op, err)
	}
	return domain.WrapError(domain.KindDirectoryUnavailable, "identity directory unavailable", err)
}

func mapIdentity(username string, attrs []types.AttributeType) *domain.Identity {
	get := func(name string) string {
		for _, a := range attrs {
			if aws.ToString(a.Name) == name {
				return aws.ToString(a.Value)
			}
		}
		return ""
	}

	class := domain.IdentityClass(get(attrUserType))
	if class == "" {
		class = domain.ClassAuthenticated
	}

	return &domain.Identity{
		Key:         username,
		DisplayName: get(attrName),
		Email:       get(attrEmail),
		Class:       class,
	}
}
