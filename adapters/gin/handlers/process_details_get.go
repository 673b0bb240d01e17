package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	authgin "github.com/juslabs/casegate/adapters/gin"
	"github.com/juslabs/casegate/docstore"
)

// HandleProcessDetailsGET returns the plain text of the process document.
func HandleProcessDetailsGET(reader *docstore.PDFReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		text, err := reader.Text()
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"path":       reader.Path(),
				"request_id": authgin.RequestIDFrom(c),
			}).Error("failed to read process document")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error reading the process document"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"text": text})
	}
}
