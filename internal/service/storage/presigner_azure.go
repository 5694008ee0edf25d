package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
)

// Compile-time check.
var _ UploadPresigner = (*AzurePresigner)(nil)

// AzurePresigner generates SAS URLs for Azure Blob Storage objects using
// shared-key credentials.
type AzurePresigner struct {
	client *azblob.Client
}

// NewAzurePresigner creates an AzurePresigner for the given storage account.
// serviceURL may be empty, in which case the public blob endpoint of the
// account is used.
func NewAzurePresigner(accountName, accountKey, serviceURL string) (*AzurePresigner, error) {
	if accountName == "" || accountKey == "" {
		return nil, fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required to publish to az://")
	}

	sharedKeyCred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}

	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, sharedKeyCred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}

	return &AzurePresigner{client: client}, nil
}

// PresignPutObject generates a SAS PUT URL for uploading a blob.
func (p *AzurePresigner) PresignPutObject(_ context.Context, container, key string, expiry time.Duration) (string, error) {
	blobClient := p.client.ServiceClient().NewContainerClient(container).NewBlobClient(key)
	sasURL, err := blobClient.GetSASURL(sas.BlobPermissions{Write: true, Create: true}, time.Now().Add(expiry), nil)
	if err != nil {
		return "", fmt.Errorf("generate SAS upload URL for %q/%q: %w", container, key, err)
	}
	return sasURL, nil
}
