package router

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/priyxstudio/examination/config"
	"github.com/priyxstudio/examination/router/middleware"
)

var errBadName = errors.NewPlain("invalid file or module name")

// cleanName rejects names that would escape the upload directory.
func cleanName(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", middleware.NewError(errors.WithMessage(errBadName, name), http.StatusBadRequest)
	}
	return name, nil
}

// moduleDirectory returns the directory uploads for a module are written to.
func moduleDirectory(moduleID string) (string, error) {
	id, err := cleanName(moduleID)
	if err != nil {
		return "", err
	}
	return filepath.Join(config.Get().System.Data, id), nil
}

// getModuleFiles returns the names of the files recorded for a module.
// @Summary List module files
// @Tags Files
// @Produce json
// @Param module path string true "Module code"
// @Success 200 {object} router.FileListResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/modules/{module}/files [get]
func getModuleFiles(c *gin.Context) {
	list, err := middleware.ExtractService(c).GetFileList(c.Request.Context(), c.Param("module"))
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, FileListResponse{Data: list})
}

// getModuleFile downloads a stored module file.
// @Summary Download module file
// @Tags Files
// @Produce octet-stream
// @Param module path string true "Module code"
// @Param file path string true "File name"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/modules/{module}/files/{file} [get]
func getModuleFile(c *gin.Context) {
	dir, err := moduleDirectory(c.Param("module"))
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	name, err := cleanName(c.Param("file"))
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	p := filepath.Join(dir, name)
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			middleware.CaptureAndAbort(c, middleware.NewError(errors.New("file not found"), http.StatusNotFound))
			return
		}
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.FileAttachment(p, name)
}

// postModuleFiles stores the uploaded files of a module on disk and records
// their names.
// @Summary Upload module files
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param module path string true "Module code"
// @Param files formData file true "Files to upload"
// @Success 200 {object} router.UploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/modules/{module}/files [post]
func postModuleFiles(c *gin.Context) {
	svc := middleware.ExtractService(c)
	moduleID := c.Param("module")

	dir, err := moduleDirectory(moduleID)
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	if ok, err := svc.IsModuleExists(c.Request.Context(), moduleID); err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	} else if !ok {
		middleware.CaptureAndAbort(c, middleware.NewError(errors.New("no such module"), http.StatusNotFound))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "Failed to get multipart form data from request.",
		})
		return
	}

	headers, ok := form.File["files"]
	if !ok || len(headers) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "No files were found on the request body.",
		})
		return
	}

	maxFileSize := config.Get().Api.UploadLimit
	maxFileSizeBytes := maxFileSize * 1024 * 1024
	for _, header := range headers {
		if _, err := cleanName(header.Filename); err != nil {
			middleware.CaptureAndAbort(c, err)
			return
		}
		if header.Size > maxFileSizeBytes {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "File " + header.Filename + " is larger than the maximum file upload size of " + strconv.FormatInt(maxFileSize, 10) + " MB.",
			})
			return
		}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		middleware.CaptureAndAbort(c, errors.Wrap(err, "router: failed to create upload directory"))
		return
	}

	logger := middleware.ExtractLogger(c)
	res := UploadResponse{Files: make([]UploadedFile, 0, len(headers))}
	for _, header := range headers {
		// Separate function so the file can be closed with defer.
		mt, err := handleFileUpload(filepath.Join(dir, header.Filename), header)
		if err != nil {
			middleware.CaptureAndAbort(c, err)
			return
		}
		if _, err := svc.RecordUpload(c.Request.Context(), moduleID, header.Filename); err != nil {
			middleware.CaptureAndAbort(c, err)
			return
		}
		logger.WithFields(log.Fields{
			"module":   moduleID,
			"file":     header.Filename,
			"mimetype": mt,
		}).Info("stored module file")
		res.Files = append(res.Files, UploadedFile{Name: header.Filename, Size: header.Size, Mimetype: mt})
	}

	c.JSON(http.StatusOK, res)
}

// handleFileUpload writes the uploaded file to p and returns its detected
// mimetype.
func handleFileUpload(p string, header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	mt, err := mimetype.DetectReader(file)
	if err != nil {
		return "", errors.Wrap(err, "router: failed to detect mimetype")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", errors.Wrap(err, "router: failed to open upload destination")
	}
	defer f.Close()

	if _, err := io.Copy(f, file); err != nil {
		return "", errors.Wrap(err, "router: failed to write upload")
	}
	return mt.String(), nil
}

// deleteModuleFile removes a file from the record of a module. The file is
// deleted from disk once no record of that name remains.
// @Summary Delete module file
// @Tags Files
// @Produce json
// @Param module path string true "Module code"
// @Param file path string true "File name"
// @Success 200 {object} router.MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/modules/{module}/files/{file} [delete]
func deleteModuleFile(c *gin.Context) {
	svc := middleware.ExtractService(c)
	moduleID := c.Param("module")

	dir, err := moduleDirectory(moduleID)
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	name, err := cleanName(c.Param("file"))
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}

	msg, err := svc.DeleteFileRecord(c.Request.Context(), moduleID, name)
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}

	list, err := svc.GetFileList(c.Request.Context(), moduleID)
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	for _, f := range list {
		if f == name {
			c.JSON(http.StatusOK, MessageResponse{Message: msg})
			return
		}
	}
	if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
		middleware.ExtractLogger(c).WithField("error", err).WithField("file", name).Warn("failed to remove module file from disk")
	}
	c.JSON(http.StatusOK, MessageResponse{Message: msg})
}
